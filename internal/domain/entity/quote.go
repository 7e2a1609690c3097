package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/domain/totals"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Quote is a price estimate sent to a client for approval
type Quote struct {
	ID         uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	UserID     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_quotes_user_number" json:"user_id"`
	ClientID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"client_id"`
	Number     string           `gorm:"size:50;not null;uniqueIndex:idx_quotes_user_number" json:"number"`
	Title      string           `gorm:"size:255;not null" json:"title"`
	Status     enum.QuoteStatus `gorm:"not null;index" json:"status"`
	ValidUntil *time.Time       `json:"valid_until,omitempty"`

	Amounts `gorm:"embedded"`

	ApprovalToken      *string        `gorm:"size:64;uniqueIndex" json:"approval_token,omitempty"`
	Notes              *string        `gorm:"type:text" json:"notes,omitempty"`
	SentAt             *time.Time     `json:"sent_at,omitempty"`
	ApprovedAt         *time.Time     `json:"approved_at,omitempty"`
	RejectedAt         *time.Time     `json:"rejected_at,omitempty"`
	RejectionReason    *string        `gorm:"type:text" json:"rejection_reason,omitempty"`
	ConvertedInvoiceID *uuid.UUID     `gorm:"type:uuid" json:"converted_invoice_id,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Client      *Client           `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Items       []QuoteItem       `gorm:"foreignKey:QuoteID" json:"items,omitempty"`
	Contractors []QuoteContractor `gorm:"foreignKey:QuoteID" json:"contractors,omitempty"`
}

// IsExpiredAt reports whether a sent quote has passed its validity date
func (q *Quote) IsExpiredAt(now time.Time) bool {
	return q.Status == enum.QuoteStatusSent && q.ValidUntil != nil && q.ValidUntil.Before(now)
}

// Recompute derives the header amounts from items and assignments
func (q *Quote) Recompute(items []QuoteItem, contractors []QuoteContractor) {
	lines := make([]totals.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.Line())
	}
	assignments := make([]totals.Assignment, 0, len(contractors))
	for _, c := range contractors {
		assignments = append(assignments, totals.Assignment{Cost: c.Cost, IncludeInTotal: c.IncludeInTotal})
	}
	q.Apply(totals.Compute(lines, q.TaxRate), totals.ContractorFees(assignments))
}

func (q *Quote) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

func (Quote) TableName() string {
	return "quotes"
}

// QuoteItem is a line item on a quote
type QuoteItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	QuoteID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"quote_id"`
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

func (i QuoteItem) Line() totals.Line {
	return totals.Line{Quantity: i.Quantity, UnitPrice: i.UnitPrice, Total: i.Total, Taxable: i.Taxable}
}

func (i *QuoteItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (QuoteItem) TableName() string {
	return "quote_items"
}

// QuoteContractor assigns a contractor to a quote
type QuoteContractor struct {
	ID             uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	QuoteID        uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_quote_contractor" json:"quote_id"`
	ContractorID   uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_quote_contractor" json:"contractor_id"`
	Skills         []string         `gorm:"serializer:json;type:text" json:"skills"`
	RateType       enum.PricingMode `gorm:"size:20;not null" json:"rate_type"`
	Rate           decimal.Decimal  `gorm:"type:decimal(15,2)" json:"rate"`
	Hours          *decimal.Decimal `gorm:"type:decimal(8,2)" json:"hours,omitempty"`
	Cost           decimal.Decimal  `gorm:"type:decimal(15,2)" json:"cost"`
	IncludeInTotal bool             `json:"include_in_total"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`

	Contractor *Contractor `gorm:"foreignKey:ContractorID" json:"contractor,omitempty"`
}

func (c *QuoteContractor) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (QuoteContractor) TableName() string {
	return "quote_contractors"
}
