package ingress

import (
	"payment-relay/internal/core/common/validation"
)

// StatusError marks locally produced failures; success and pending statuses
// are relayed verbatim from the processing service.
const StatusError = "error"

// UserRequest is the payload a customer submits to start a payment. The
// currency is fixed server-side; customers only choose amount and product.
type UserRequest struct {
	Amount      float64 `json:"amount"`
	ProductName string  `json:"product_name"`
	Quantity    int64   `json:"quantity"`
	Email       string  `json:"email"`
}

func (r *UserRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("amount", r.Amount).PositiveFloat()
	validator.Field("product_name", r.ProductName).Required().MaxLength(250)
	validator.Field("quantity", r.Quantity).PositiveInt()
	validator.Field("email", r.Email).Required().Email()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// UserResponse is returned for both payment creation and confirmation
// acknowledgements. PaymentLink is only set on successful link creation.
type UserResponse struct {
	Status      string `json:"status"`
	Details     string `json:"details"`
	PaymentLink string `json:"payment_link,omitempty"`
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

type InvoiceResponse struct {
	Status  string `json:"status"`
	Details string `json:"details"`
}
