package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"

	apperrors "payment-relay/internal"
	datamodel "payment-relay/internal/core/datamodel/payments"
	"payment-relay/internal/core/events"
	"payment-relay/internal/transport"
)

const eventPaymentIntentSucceeded = "payment_intent.succeeded"

// paymentIntentPayload is the subset of the provider's payment_intent object
// the dispatcher consumes. Decoding into our own struct keeps the extraction
// absent-safe: a missing charge list just yields an empty receipt URL.
type paymentIntentPayload struct {
	ID             string `json:"id"`
	ReceiptEmail   string `json:"receipt_email"`
	AmountReceived int64  `json:"amount_received"`
	Currency       string `json:"currency"`
	Description    string `json:"description"`
	Created        int64  `json:"created"`
	Charges        struct {
		Data []struct {
			ReceiptURL string `json:"receipt_url"`
		} `json:"data"`
	} `json:"charges"`
}

// WebhookHandler verifies provider webhooks and dispatches the recognized
// event type. Nothing in the payload is trusted, logged in detail, or acted
// on before signature verification passes.
type WebhookHandler struct {
	*transport.BaseHandler
	secret     string
	notifier   Notifier
	repository Repository
	bus        *events.EventBus
	logger     *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, secret string, notifier Notifier, repository Repository, bus *events.EventBus, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		secret:      secret,
		notifier:    notifier,
		repository:  repository,
		bus:         bus,
		logger:      logger,
	}
}

// HandleStripeWebhook processes POST /stripe_webhook. The webhook response
// is only written after the confirmation push completes or times out, so the
// provider's delivery latency includes the downstream hop.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		h.WriteJSON(w, http.StatusOK, PaymentResponse{Status: StatusError, Details: apperrors.ErrInvalidPayload.Message})
		return
	}

	event, err := webhook.ConstructEvent(body, r.Header.Get("Stripe-Signature"), h.secret)
	if err != nil {
		if isSignatureError(err) {
			h.logger.Error("webhook signature verification failed", "error", err)
			h.WriteJSON(w, http.StatusOK, PaymentResponse{Status: StatusError, Details: apperrors.ErrInvalidSignature.Message})
			return
		}
		h.logger.Error("webhook payload malformed", "error", err)
		h.WriteJSON(w, http.StatusOK, PaymentResponse{Status: StatusError, Details: apperrors.ErrInvalidPayload.Message})
		return
	}

	if string(event.Type) != eventPaymentIntentSucceeded {
		h.logger.Info("ignoring webhook event", "event_type", event.Type, "event_id", event.ID)
		h.WriteJSON(w, http.StatusOK, PaymentResponse{Status: StatusError, Details: apperrors.ErrUnhandledEvent.Message})
		return
	}

	var intent paymentIntentPayload
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		h.logger.Error("failed to decode payment intent", "error", err, "event_id", event.ID)
		h.WriteJSON(w, http.StatusOK, PaymentResponse{Status: StatusError, Details: apperrors.ErrInvalidPayload.Message})
		return
	}

	receiptURL := ""
	if len(intent.Charges.Data) > 0 {
		receiptURL = intent.Charges.Data[0].ReceiptURL
	}

	confirmedAt := time.Now()
	response := PaymentResponse{
		Status:           StatusSuccess,
		Details:          confirmationDetails(intent.AmountReceived, intent.Currency, intent.Description),
		PaymentLink:      receiptURL,
		GenerateTime:     intent.Created,
		PaymentStatus:    PaymentStatusSucceeded,
		ConfirmationTime: confirmedAt.Unix(),
		Amount:           MinorToMajor(intent.AmountReceived),
	}

	h.logger.Info("payment confirmed",
		"event_id", event.ID,
		"amount_minor", intent.AmountReceived,
		"currency", intent.Currency,
		"receipt_email", intent.ReceiptEmail)

	if h.repository != nil {
		record := &datamodel.PaymentEvent{
			EventID:      event.ID,
			EventType:    string(event.Type),
			ReceiptEmail: intent.ReceiptEmail,
			AmountMinor:  intent.AmountReceived,
			Currency:     intent.Currency,
			Description:  intent.Description,
			ReceiptURL:   receiptURL,
			ConfirmedAt:  confirmedAt,
			Payload:      json.RawMessage(event.Data.Raw),
		}
		if err := h.repository.RecordConfirmation(record); err != nil {
			h.logger.Error("failed to persist confirmation", "error", err, "event_id", event.ID)
		}
	}

	if h.bus != nil {
		_ = h.bus.Publish(r.Context(), events.NewPaymentConfirmedEvent(
			event.ID, intent.ReceiptEmail, MinorToMajor(intent.AmountReceived),
			intent.Currency, intent.Description, receiptURL))
	}

	// Single attempt, awaited. Push failure does not fail the webhook
	// response; it is surfaced in logs and the provider will redeliver.
	if h.notifier != nil {
		if err := h.notifier.Push(r.Context(), &response); err != nil {
			h.logger.Error("confirmation push failed", "error", err, "event_id", event.ID)
		}
	}

	h.WriteJSON(w, http.StatusOK, response)
}

func confirmationDetails(amountMinor int64, currency, description string) string {
	return fmt.Sprintf("Payment of %d %s for %s confirmed.", amountMinor, currency, description)
}

// isSignatureError separates authenticity failures from malformed payloads;
// the two map to different details strings.
func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrTooOld)
}
