package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/domain/totals"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is a binding bill, optionally converted from an approved quote
type Invoice struct {
	ID       uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	UserID   uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_invoices_user_number" json:"user_id"`
	ClientID uuid.UUID          `gorm:"type:uuid;not null;index" json:"client_id"`
	QuoteID  *uuid.UUID         `gorm:"type:uuid;index" json:"quote_id,omitempty"`
	Number   string             `gorm:"size:50;not null;uniqueIndex:idx_invoices_user_number" json:"number"`
	Title    string             `gorm:"size:255;not null" json:"title"`
	Status   enum.InvoiceStatus `gorm:"not null;index" json:"status"`
	DueDate  *time.Time         `json:"due_date,omitempty"`

	Amounts `gorm:"embedded"`

	PaymentToken *string        `gorm:"size:64;uniqueIndex" json:"payment_token,omitempty"`
	Notes        *string        `gorm:"type:text" json:"notes,omitempty"`
	IssuedAt     *time.Time     `json:"issued_at,omitempty"`
	PaidDate     *time.Time     `json:"paid_date,omitempty"`
	CancelledAt  *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Client      *Client             `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Items       []InvoiceItem       `gorm:"foreignKey:InvoiceID" json:"items,omitempty"`
	Contractors []InvoiceContractor `gorm:"foreignKey:InvoiceID" json:"contractors,omitempty"`
	Payments    []Payment           `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`
}

// IsOverdueAt reports whether a sent invoice has passed its due date
func (i *Invoice) IsOverdueAt(now time.Time) bool {
	return i.Status == enum.InvoiceStatusSent && i.DueDate != nil && i.DueDate.Before(now)
}

func (i *Invoice) Recompute(items []InvoiceItem, contractors []InvoiceContractor) {
	lines := make([]totals.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.Line())
	}
	assignments := make([]totals.Assignment, 0, len(contractors))
	for _, c := range contractors {
		assignments = append(assignments, c.Assignment())
	}
	i.Apply(totals.Compute(lines, i.TaxRate), totals.ContractorFees(assignments))
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceItem is a line item on an invoice
type InvoiceItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	InvoiceID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ServiceName       string          `gorm:"size:255;not null" json:"service_name"`
	Description       *string         `gorm:"type:text" json:"description,omitempty"`
	Quantity          decimal.Decimal `gorm:"type:decimal(12,2)" json:"quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(15,2)" json:"unit_price"`
	Total             decimal.Decimal `gorm:"type:decimal(15,2)" json:"total"`
	Taxable           bool            `json:"taxable"`
	ContractorID      *uuid.UUID      `gorm:"type:uuid" json:"contractor_id,omitempty"`
	ServiceTemplateID *uuid.UUID      `gorm:"type:uuid" json:"service_template_id,omitempty"`
	SortOrder         int             `json:"sort_order"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (i InvoiceItem) Line() totals.Line {
	return totals.Line{Quantity: i.Quantity, UnitPrice: i.UnitPrice, Total: i.Total, Taxable: i.Taxable}
}

func (i *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (InvoiceItem) TableName() string {
	return "invoice_items"
}

// InvoiceContractor assigns a contractor to an invoice. A separately billed
// assignment is paid through its own fee link instead of the invoice.
type InvoiceContractor struct {
	ID                        uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	InvoiceID                 uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_contractor" json:"invoice_id"`
	ContractorID              uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_contractor" json:"contractor_id"`
	Skills                    []string         `gorm:"serializer:json;type:text" json:"skills"`
	RateType                  enum.PricingMode `gorm:"size:20;not null" json:"rate_type"`
	Rate                      decimal.Decimal  `gorm:"type:decimal(15,2)" json:"rate"`
	Hours                     *decimal.Decimal `gorm:"type:decimal(8,2)" json:"hours,omitempty"`
	Cost                      decimal.Decimal  `gorm:"type:decimal(15,2)" json:"cost"`
	IncludeInTotal            bool             `json:"include_in_total"`
	BilledSeparately          bool             `json:"billed_separately"`
	ContractorFeePaymentToken *string          `gorm:"size:64;index" json:"contractor_fee_payment_token,omitempty"`
	BilledSeparatelyAt        *time.Time       `json:"billed_separately_at,omitempty"`
	FeePaidAt                 *time.Time       `json:"fee_paid_at,omitempty"`
	CreatedAt                 time.Time        `json:"created_at"`
	UpdatedAt                 time.Time        `json:"updated_at"`

	Contractor *Contractor `gorm:"foreignKey:ContractorID" json:"contractor,omitempty"`
}

// CanBillSeparately reports whether the fee may be carved out of the invoice
func (c *InvoiceContractor) CanBillSeparately() bool {
	return c.IncludeInTotal && !c.BilledSeparately
}

func (c InvoiceContractor) Assignment() totals.Assignment {
	return totals.Assignment{Cost: c.Cost, IncludeInTotal: c.IncludeInTotal, BilledSeparately: c.BilledSeparately}
}

func (c *InvoiceContractor) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (InvoiceContractor) TableName() string {
	return "invoice_contractors"
}
