package ingress

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"payment-relay/internal/transport"
)

// defaultCurrency is applied to every customer payment. Customers never pick
// a currency on this surface.
const defaultCurrency = "USD"

// Handler is the customer-facing surface. It reshapes customer requests into
// processor calls and reshapes processor responses back. Any failure along
// the hop becomes a status=error body; the customer never sees a transport
// error.
type Handler struct {
	*transport.BaseHandler
	Processor ProcessorAPI
	Logger    *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, processor ProcessorAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Processor:   processor,
		Logger:      logger,
	}
}

// CreatePayment handles POST /create_payment
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CreatePayment: failed to parse request body", "error", err)
		h.WriteJSON(w, http.StatusOK, UserResponse{Status: StatusError, Details: "invalid request body"})
		return
	}

	h.Logger.Info("CreatePayment: received user request",
		"product_name", req.ProductName,
		"amount", req.Amount,
		"quantity", req.Quantity)

	if err := req.Validate(); err != nil {
		h.Logger.Warn("CreatePayment: validation failed", "error", err)
		h.WriteJSON(w, http.StatusOK, UserResponse{Status: StatusError, Details: h.ErrorDetails(err)})
		return
	}

	resp, err := h.Processor.GeneratePaymentLink(r.Context(), &ProcessorPaymentRequest{
		Amount:        req.Amount,
		Currency:      defaultCurrency,
		ProductName:   req.ProductName,
		Quantity:      req.Quantity,
		CustomerEmail: req.Email,
	})
	if err != nil {
		h.Logger.Error("CreatePayment: processor call failed", "error", err)
		h.WriteJSON(w, http.StatusOK, UserResponse{Status: StatusError, Details: h.ErrorDetails(err)})
		return
	}

	h.WriteJSON(w, http.StatusOK, UserResponse{
		Status:      resp.Status,
		Details:     resp.Details,
		PaymentLink: resp.PaymentLink,
	})
}

// GenerateInvoice handles POST /generate_invoice
func (h *Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("GenerateInvoice: failed to parse request body", "error", err)
		h.WriteJSON(w, http.StatusOK, InvoiceResponse{Status: StatusError, Details: "invalid request body"})
		return
	}

	h.Logger.Info("GenerateInvoice: received invoice request", "payment_id", req.PaymentID)

	if err := req.Validate(); err != nil {
		h.Logger.Warn("GenerateInvoice: validation failed", "error", err)
		h.WriteJSON(w, http.StatusOK, InvoiceResponse{Status: StatusError, Details: h.ErrorDetails(err)})
		return
	}

	resp, err := h.Processor.GenerateInvoice(r.Context(), req.PaymentID)
	if err != nil {
		h.Logger.Error("GenerateInvoice: processor call failed", "error", err, "payment_id", req.PaymentID)
		h.WriteJSON(w, http.StatusOK, InvoiceResponse{Status: StatusError, Details: h.ErrorDetails(err)})
		return
	}

	h.WriteJSON(w, http.StatusOK, InvoiceResponse{
		Status:  resp.Status,
		Details: resp.Details,
	})
}

// PaymentConfirmation handles POST /payment_confirmation, the endpoint the
// processing service pushes verified webhook confirmations to. The full
// confirmation is logged and acknowledged with its own status and details.
func (h *Handler) PaymentConfirmation(w http.ResponseWriter, r *http.Request) {
	var confirmation struct {
		Status           string  `json:"status"`
		Details          string  `json:"details"`
		PaymentStatus    string  `json:"payment_status"`
		ConfirmationTime int64   `json:"confirmation_time"`
		Amount           float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&confirmation); err != nil {
		h.Logger.Error("PaymentConfirmation: failed to parse request body", "error", err)
		h.WriteJSON(w, http.StatusOK, UserResponse{Status: StatusError, Details: "invalid request body"})
		return
	}

	h.Logger.Info("PaymentConfirmation: received payment confirmation",
		"status", confirmation.Status,
		"payment_status", confirmation.PaymentStatus,
		"amount", confirmation.Amount,
		"confirmation_time", confirmation.ConfirmationTime,
		"details", confirmation.Details)

	h.WriteJSON(w, http.StatusOK, UserResponse{
		Status:  confirmation.Status,
		Details: confirmation.Details,
	})
}
