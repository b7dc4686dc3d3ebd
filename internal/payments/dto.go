package payments

import (
	"payment-relay/internal/core/common/validation"
)

// Request status values visible to clients.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Payment lifecycle values carried in PaymentResponse.PaymentStatus.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusInvoiced  = "invoice_generated"
	PaymentStatusError     = "error"
)

// PaymentRequest is the processor's inbound link-creation payload. Amount is
// in major currency units; the Stripe gateway converts to minor units.
type PaymentRequest struct {
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	ProductName   string  `json:"product_name"`
	Quantity      int64   `json:"quantity"`
	CustomerEmail string  `json:"customer_email"`
}

func (r *PaymentRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("amount", r.Amount).PositiveFloat()
	validator.Field("currency", r.Currency).Required().CurrencyCode()
	validator.Field("product_name", r.ProductName).Required().MaxLength(250)
	validator.Field("quantity", r.Quantity).PositiveInt()
	validator.Field("customer_email", r.CustomerEmail).Required().Email()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// PaymentResponse is the wire shape shared by every processor endpoint and
// by the confirmation push to the ingress service. ConfirmationTime zero
// means not yet confirmed; Amount is always major units even though the
// provider reports minor units.
type PaymentResponse struct {
	Status           string  `json:"status"`
	Details          string  `json:"details"`
	PaymentLink      string  `json:"payment_link,omitempty"`
	GenerateTime     int64   `json:"generate_time,omitempty"`
	PaymentStatus    string  `json:"payment_status,omitempty"`
	ConfirmationTime int64   `json:"confirmation_time"`
	Amount           float64 `json:"amount,omitempty"`
}

type InvoiceRequest struct {
	PaymentID string `json:"payment_id"`
}

func (r *InvoiceRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("payment_id", r.PaymentID).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
