package payments

import (
	"encoding/json"
	"time"
)

const (
	StatusPending   = "pending"
	StatusSucceeded = "succeeded"
	StatusInvoiced  = "invoice_generated"
	StatusError     = "error"
)

// Payment records a generated payment link. One row per successful
// /generate_payment_link call; webhook confirmations land in PaymentEvent.
type Payment struct {
	ID            int64     `gorm:"primaryKey"`
	LinkID        string    `gorm:"column:link_id;not null;uniqueIndex"`
	ProductName   string    `gorm:"column:product_name;not null"`
	CustomerEmail string    `gorm:"column:customer_email;not null"`
	AmountMinor   int64     `gorm:"column:amount_minor;not null"`
	Currency      string    `gorm:"column:currency;not null"`
	PaymentLink   string    `gorm:"column:payment_link;not null"`
	Status        string    `gorm:"column:status;default:pending"`
	CreatedAt     time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt     time.Time `gorm:"column:updated_at;default:now()"`
}

// PaymentEvent records a verified provider webhook confirmation. The raw
// payload is kept for audit; it is only written after signature verification.
type PaymentEvent struct {
	ID           int64           `gorm:"primaryKey"`
	EventID      string          `gorm:"column:event_id;not null;uniqueIndex"`
	EventType    string          `gorm:"column:event_type;not null"`
	ReceiptEmail string          `gorm:"column:receipt_email"`
	AmountMinor  int64           `gorm:"column:amount_minor"`
	Currency     string          `gorm:"column:currency"`
	Description  string          `gorm:"column:description"`
	ReceiptURL   string          `gorm:"column:receipt_url"`
	ConfirmedAt  time.Time       `gorm:"column:confirmed_at"`
	Payload      json.RawMessage `gorm:"column:payload;type:jsonb"`
	CreatedAt    time.Time       `gorm:"column:created_at;default:now()"`
}
