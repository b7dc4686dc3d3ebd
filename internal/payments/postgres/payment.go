package postgres

import (
	"time"

	"gorm.io/gorm"

	datamodel "payment-relay/internal/core/datamodel/payments"
	"payment-relay/internal/payments"
)

// PaymentRepository implements the payments.Repository interface using GORM
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) payments.Repository {
	return &PaymentRepository{db: db}
}

// Create saves a new payment link record
func (r *PaymentRepository) Create(p *datamodel.Payment) error {
	return r.db.Create(p).Error
}

// RecordConfirmation stores a verified webhook confirmation and flips the
// matching payment row to succeeded. The provider event does not carry the
// link id, so matching is by customer and amount, restricted to the single
// most recent pending row; one confirmation never settles two links. A
// confirmation without a matching row is still recorded; the link may have
// been created elsewhere.
func (r *PaymentRepository) RecordConfirmation(e *datamodel.PaymentEvent) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(e).Error; err != nil {
			return err
		}

		match := tx.Model(&datamodel.Payment{}).
			Select("id").
			Where("customer_email = ? AND amount_minor = ? AND status = ?",
				e.ReceiptEmail, e.AmountMinor, datamodel.StatusPending).
			Order("created_at DESC").
			Limit(1)

		return tx.Model(&datamodel.Payment{}).
			Where("id = (?)", match).
			Updates(map[string]interface{}{
				"status":     datamodel.StatusSucceeded,
				"updated_at": time.Now(),
			}).Error
	})
}
