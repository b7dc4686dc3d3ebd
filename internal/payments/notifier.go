package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	apperrors "payment-relay/internal"
)

// Notifier pushes verified payment confirmations downstream.
type Notifier interface {
	Push(ctx context.Context, response *PaymentResponse) error
}

// ConfirmationNotifier delivers confirmations to the ingress service over
// HTTP. The call blocks the webhook handler until it completes or the
// configured timeout fires; there is no retry here, at-least-once delivery
// comes from the provider redelivering unacknowledged webhooks.
type ConfirmationNotifier struct {
	client  *http.Client
	url     string
	timeout time.Duration
	logger  *slog.Logger
}

func NewConfirmationNotifier(url string, timeout time.Duration, logger *slog.Logger) *ConfirmationNotifier {
	return &ConfirmationNotifier{
		client:  &http.Client{Timeout: timeout},
		url:     url,
		timeout: timeout,
		logger:  logger,
	}
}

func (n *ConfirmationNotifier) Push(ctx context.Context, response *PaymentResponse) error {
	body, err := json.Marshal(response)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal confirmation", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return apperrors.NewInternalError("failed to build confirmation request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	n.logger.Info("pushing payment confirmation",
		"url", n.url,
		"payment_status", response.PaymentStatus,
		"amount", response.Amount)

	resp, err := n.client.Do(req)
	if err != nil {
		return apperrors.NewUpstreamError("confirmation push failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return apperrors.NewUpstreamError(
			fmt.Sprintf("confirmation endpoint returned status %d", resp.StatusCode), nil)
	}

	n.logger.Info("payment confirmation delivered", "status_code", resp.StatusCode)
	return nil
}
