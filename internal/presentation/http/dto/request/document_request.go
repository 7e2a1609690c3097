package request

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemRequest is a quote or invoice line item
type ItemRequest struct {
	ServiceName       string           `json:"service_name" binding:"omitempty,max=255"`
	Description       *string          `json:"description"`
	Quantity          decimal.Decimal  `json:"quantity" binding:"money"`
	UnitPrice         decimal.Decimal  `json:"unit_price" binding:"money"`
	Total             *decimal.Decimal `json:"total" binding:"omitempty,money"`
	Taxable           *bool            `json:"taxable"`
	ContractorID      *uuid.UUID       `json:"contractor_id"`
	ServiceTemplateID *uuid.UUID       `json:"service_template_id"`
	SortOrder         *int             `json:"sort_order" binding:"omitempty,min=0"`
}

// UpdateItemRequest changes selected fields of a line item
type UpdateItemRequest struct {
	ServiceName *string          `json:"service_name" binding:"omitempty,min=1,max=255"`
	Description *string          `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity" binding:"omitempty,money"`
	UnitPrice   *decimal.Decimal `json:"unit_price" binding:"omitempty,money"`
	Total       *decimal.Decimal `json:"total" binding:"omitempty,money"`
	Taxable     *bool            `json:"taxable"`
	SortOrder   *int             `json:"sort_order" binding:"omitempty,min=0"`
}

// AssignmentRequest assigns a contractor to a quote or invoice
type AssignmentRequest struct {
	ContractorID   uuid.UUID        `json:"contractor_id" binding:"required"`
	Skills         []string         `json:"skills"`
	RateType       *string          `json:"rate_type" binding:"omitempty,pricing_mode"`
	Rate           *decimal.Decimal `json:"rate" binding:"omitempty,money"`
	Hours          *decimal.Decimal `json:"hours" binding:"omitempty,money"`
	Cost           *decimal.Decimal `json:"cost" binding:"omitempty,money"`
	IncludeInTotal *bool            `json:"include_in_total"`
}

// UpdateAssignmentRequest changes selected fields of an assignment
type UpdateAssignmentRequest struct {
	Skills         []string         `json:"skills"`
	RateType       *string          `json:"rate_type" binding:"omitempty,pricing_mode"`
	Rate           *decimal.Decimal `json:"rate" binding:"omitempty,money"`
	Hours          *decimal.Decimal `json:"hours" binding:"omitempty,money"`
	Cost           *decimal.Decimal `json:"cost" binding:"omitempty,money"`
	IncludeInTotal *bool            `json:"include_in_total"`
}

// CreateQuoteRequest represents a quote creation request
type CreateQuoteRequest struct {
	ClientID   uuid.UUID        `json:"client_id" binding:"required"`
	Title      string           `json:"title" binding:"required,min=1,max=255"`
	ValidUntil string           `json:"valid_until"`
	TaxRate    *decimal.Decimal `json:"tax_rate" binding:"omitempty,percent"`
	Notes      *string          `json:"notes"`
	Items      []ItemRequest    `json:"items" binding:"omitempty,dive"`
}

// UpdateDocumentRequest edits the header of a quote or invoice. Date
// carries valid_until for quotes and due_date for invoices.
type UpdateDocumentRequest struct {
	ClientID   *uuid.UUID       `json:"client_id"`
	Title      *string          `json:"title" binding:"omitempty,min=1,max=255"`
	ValidUntil string           `json:"valid_until"`
	DueDate    string           `json:"due_date"`
	TaxRate    *decimal.Decimal `json:"tax_rate" binding:"omitempty,percent"`
	Notes      *string          `json:"notes"`
}

// CreateInvoiceRequest represents an invoice creation request
type CreateInvoiceRequest struct {
	ClientID uuid.UUID        `json:"client_id" binding:"required"`
	Title    string           `json:"title" binding:"required,min=1,max=255"`
	DueDate  string           `json:"due_date"`
	TaxRate  *decimal.Decimal `json:"tax_rate" binding:"omitempty,percent"`
	Notes    *string          `json:"notes"`
	Items    []ItemRequest    `json:"items" binding:"omitempty,dive"`
}

// SendRequest optionally overrides the validity or due date when sending
type SendRequest struct {
	ValidUntil string `json:"valid_until"`
	DueDate    string `json:"due_date"`
}

// CancelInvoiceRequest carries an optional cancellation reason
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// BillSeparatelyRequest lists the contractors to bill in one batch
type BillSeparatelyRequest struct {
	ContractorIDs []uuid.UUID `json:"contractor_ids" binding:"required,min=1"`
}

// RejectQuoteRequest is submitted by a client from the public quote page
type RejectQuoteRequest struct {
	Token    string `json:"token" binding:"required"`
	Feedback string `json:"feedback" binding:"max=5000"`
}

// DocumentFilterRequest represents quote and invoice filter parameters
type DocumentFilterRequest struct {
	ListRequest
	Status   string `form:"status"`
	ClientID string `form:"client_id"`
}

// ReportRequest selects a report and its date range
type ReportRequest struct {
	Type   string `form:"type" binding:"required,oneof=revenue outstanding clients contractors"`
	From   string `form:"from"`
	To     string `form:"to"`
	Format string `form:"format" binding:"omitempty,oneof=json xlsx"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate parses an optional date. Empty input yields nil.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", s)
}
