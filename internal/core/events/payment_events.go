package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentLinkCreated = "payment.link_created"
	EventTypePaymentConfirmed   = "payment.confirmed"
	EventTypeInvoiceGenerated   = "payment.invoice_generated"
)

type PaymentLinkCreatedEvent struct {
	BaseEvent
	LinkID        string  `json:"link_id"`
	ProductName   string  `json:"product_name"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	CustomerEmail string  `json:"customer_email"`
	PaymentLink   string  `json:"payment_link"`
}

func NewPaymentLinkCreatedEvent(linkID, productName string, amount float64, currency, customerEmail, paymentLink string) *PaymentLinkCreatedEvent {
	return &PaymentLinkCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentLinkCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"link_id":        linkID,
				"product_name":   productName,
				"amount":         amount,
				"currency":       currency,
				"customer_email": customerEmail,
				"payment_link":   paymentLink,
			},
		},
		LinkID:        linkID,
		ProductName:   productName,
		Amount:        amount,
		Currency:      currency,
		CustomerEmail: customerEmail,
		PaymentLink:   paymentLink,
	}
}

// PaymentConfirmedEvent is published only after webhook signature
// verification. Amount is in major currency units, as in responses.
type PaymentConfirmedEvent struct {
	BaseEvent
	ProviderEventID string  `json:"provider_event_id"`
	ReceiptEmail    string  `json:"receipt_email"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Description     string  `json:"description"`
	ReceiptURL      string  `json:"receipt_url"`
}

func NewPaymentConfirmedEvent(providerEventID, receiptEmail string, amount float64, currency, description, receiptURL string) *PaymentConfirmedEvent {
	return &PaymentConfirmedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentConfirmed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"provider_event_id": providerEventID,
				"receipt_email":     receiptEmail,
				"amount":            amount,
				"currency":          currency,
				"description":       description,
				"receipt_url":       receiptURL,
			},
		},
		ProviderEventID: providerEventID,
		ReceiptEmail:    receiptEmail,
		Amount:          amount,
		Currency:        currency,
		Description:     description,
		ReceiptURL:      receiptURL,
	}
}

type InvoiceGeneratedEvent struct {
	BaseEvent
	PaymentID string `json:"payment_id"`
	Result    string `json:"result"`
}

func NewInvoiceGeneratedEvent(paymentID, result string) *InvoiceGeneratedEvent {
	return &InvoiceGeneratedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeInvoiceGenerated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id": paymentID,
				"result":     result,
			},
		},
		PaymentID: paymentID,
		Result:    result,
	}
}
