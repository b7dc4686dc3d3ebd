package payments

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"payment-relay/internal/transport"
)

// Handler serves the processor's request/response endpoints. Failures never
// surface as transport errors: every outcome is a structured PaymentResponse
// so callers can always read {status, details}.
type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Logger  *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		Logger:      logger,
	}
}

// GeneratePaymentLink handles POST /generate_payment_link
func (h *Handler) GeneratePaymentLink(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("GeneratePaymentLink: failed to parse request body", "error", err)
		h.WriteJSON(w, http.StatusOK, PaymentResponse{Status: StatusError, Details: "invalid request body"})
		return
	}

	resp, err := h.Service.CreatePaymentLink(r.Context(), &req)
	if err != nil {
		h.Logger.Error("GeneratePaymentLink: service error", "error", err, "product_name", req.ProductName)
		h.WriteJSON(w, http.StatusOK, PaymentResponse{Status: StatusError, Details: h.ErrorDetails(err)})
		return
	}

	h.Logger.Info("GeneratePaymentLink: link generated",
		"product_name", req.ProductName,
		"amount", req.Amount,
		"currency", req.Currency)

	h.WriteJSON(w, http.StatusOK, resp)
}

// GenerateInvoice handles POST /generate_invoice
func (h *Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("GenerateInvoice: failed to parse request body", "error", err)
		h.WriteJSON(w, http.StatusOK, PaymentResponse{Status: StatusError, Details: "invalid request body"})
		return
	}

	resp, err := h.Service.GenerateInvoice(r.Context(), req.PaymentID)
	if err != nil {
		h.Logger.Error("GenerateInvoice: service error", "error", err, "payment_id", req.PaymentID)
		h.WriteJSON(w, http.StatusOK, PaymentResponse{Status: StatusError, Details: h.ErrorDetails(err)})
		return
	}

	h.Logger.Info("GenerateInvoice: invoice generated", "payment_id", req.PaymentID)

	h.WriteJSON(w, http.StatusOK, resp)
}
