package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subject types
const (
	SubjectQuote   = "quote"
	SubjectInvoice = "invoice"
)

// Activity actions
const (
	ActionQuoteCreated          = "QUOTE_CREATED"
	ActionQuoteSent             = "QUOTE_SENT"
	ActionQuoteResent           = "QUOTE_RESENT"
	ActionQuoteExpired          = "QUOTE_EXPIRED"
	ActionQuoteRejected         = "QUOTE_REJECTED"
	ActionQuoteApproved         = "QUOTE_APPROVED"
	ActionQuoteConverted        = "QUOTE_CONVERTED"
	ActionInvoiceCreated        = "INVOICE_CREATED"
	ActionInvoiceSent           = "INVOICE_SENT"
	ActionInvoicePaid           = "INVOICE_PAID"
	ActionInvoiceOverdue        = "INVOICE_OVERDUE"
	ActionInvoiceCancelled      = "INVOICE_CANCELLED"
	ActionPaymentRecorded       = "PAYMENT_RECORDED"
	ActionPaymentFailed         = "PAYMENT_FAILED"
	ActionPaymentDeleted        = "PAYMENT_DELETED"
	ActionContractorBilledApart = "CONTRACTOR_BILLED_SEPARATELY"
	ActionContractorFeePaid     = "CONTRACTOR_FEE_PAID"
)

// Actors
const (
	ActorClient = "client"
	ActorSystem = "system"
	ActorStripe = "stripe"
)

// AdminActor names the signed-in admin as an actor
func AdminActor(email string) string {
	return "admin:" + email
}

// ActivityEntry is one immutable audit record for a quote or invoice.
// Entries are only ever appended.
type ActivityEntry struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	SubjectType string    `gorm:"size:20;not null;index:idx_activity_subject" json:"subject_type"`
	SubjectID   uuid.UUID `gorm:"type:uuid;not null;index:idx_activity_subject" json:"subject_id"`
	Action      string    `gorm:"size:50;not null" json:"action"`
	Actor       string    `gorm:"size:255;not null" json:"actor"`
	Detail      string    `gorm:"type:text" json:"detail,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

func (a *ActivityEntry) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (ActivityEntry) TableName() string {
	return "activity_entries"
}
