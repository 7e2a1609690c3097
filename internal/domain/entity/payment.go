package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is money received (or attempted) against an invoice
type Payment struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	UserID             uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	InvoiceID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Amount             decimal.Decimal    `gorm:"type:decimal(15,2)" json:"amount"`
	Method             enum.PaymentMethod `gorm:"size:30;not null" json:"method"`
	Reference          *string            `gorm:"size:255" json:"reference,omitempty"`
	ProcessorPaymentID *string            `gorm:"size:255;index" json:"processor_payment_id,omitempty"`
	Status             enum.PaymentStatus `gorm:"not null;index" json:"status"`
	ProcessedAt        *time.Time         `json:"processed_at,omitempty"`
	Notes              *string            `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	DeletedAt          gorm.DeletedAt     `gorm:"index" json:"-"`

	Invoice *Invoice `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
}

// SetStatus is the only way status changes. ProcessedAt is set when the
// payment becomes completed and cleared for any other status.
func (p *Payment) SetStatus(status enum.PaymentStatus, now time.Time) {
	if status == enum.PaymentStatusCompleted {
		if p.Status != enum.PaymentStatusCompleted || p.ProcessedAt == nil {
			t := now
			p.ProcessedAt = &t
		}
	} else {
		p.ProcessedAt = nil
	}
	p.Status = status
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Payment) TableName() string {
	return "payments"
}
