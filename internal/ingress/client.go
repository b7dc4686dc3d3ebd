package ingress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	errors "payment-relay/internal"
)

// ProcessorAPI is the downstream surface the ingress handlers depend on.
type ProcessorAPI interface {
	GeneratePaymentLink(ctx context.Context, req *ProcessorPaymentRequest) (*ProcessorPaymentResponse, error)
	GenerateInvoice(ctx context.Context, paymentID string) (*ProcessorPaymentResponse, error)
}

// ProcessorPaymentRequest is the wire payload forwarded to the processing
// service. Field names match the processor's inbound contract.
type ProcessorPaymentRequest struct {
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	ProductName   string  `json:"product_name"`
	Quantity      int64   `json:"quantity"`
	CustomerEmail string  `json:"customer_email"`
}

// ProcessorPaymentResponse mirrors the processor's response body. Only the
// fields the ingress reshapes are decoded.
type ProcessorPaymentResponse struct {
	Status      string `json:"status"`
	Details     string `json:"details"`
	PaymentLink string `json:"payment_link"`
}

// ProcessorClient calls the processing service over HTTP. Every call runs
// under a bounded timeout; there are no retries, a failed hop is the
// caller's problem to resubmit.
type ProcessorClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

func NewProcessorClient(baseURL string, timeout time.Duration, logger *slog.Logger) *ProcessorClient {
	return &ProcessorClient{
		baseURL: baseURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *ProcessorClient) GeneratePaymentLink(ctx context.Context, req *ProcessorPaymentRequest) (*ProcessorPaymentResponse, error) {
	return c.post(ctx, "/generate_payment_link", req)
}

func (c *ProcessorClient) GenerateInvoice(ctx context.Context, paymentID string) (*ProcessorPaymentResponse, error) {
	return c.post(ctx, "/generate_invoice", map[string]string{"payment_id": paymentID})
}

func (c *ProcessorClient) post(ctx context.Context, path string, payload interface{}) (*ProcessorPaymentResponse, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Info("forwarding request to processor", "path", path)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("processor call failed", "path", path, "error", err)
		return nil, errors.NewUpstreamError(fmt.Sprintf("processing service unreachable: %v", err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("processor returned unexpected status", "path", path, "status_code", resp.StatusCode)
		return nil, errors.NewUpstreamError(fmt.Sprintf("processing service returned status %d", resp.StatusCode), nil)
	}

	var out ProcessorPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.NewUpstreamError("failed to decode processing service response", err)
	}

	return &out, nil
}
