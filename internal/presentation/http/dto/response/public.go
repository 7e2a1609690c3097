package response

import (
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/application/service"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// BusinessView is the part of the owner's settings shown to clients
type BusinessView struct {
	Name     string  `json:"name"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
	Currency string  `json:"currency"`
	Footer   *string `json:"footer,omitempty"`
}

func businessView(s *entity.UserSettings) BusinessView {
	if s == nil {
		return BusinessView{}
	}
	return BusinessView{
		Name:     s.BusinessName,
		Email:    s.BusinessEmail,
		Phone:    s.BusinessPhone,
		Address:  s.BusinessAddress,
		Currency: s.Currency,
		Footer:   s.InvoiceFooter,
	}
}

// LineView is a line item as a client sees it
type LineView struct {
	ServiceName string          `json:"service_name"`
	Description *string         `json:"description,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
	Taxable     bool            `json:"taxable"`
}

// ContractorLineView is a contractor fee as a client sees it
type ContractorLineView struct {
	Name             string          `json:"name"`
	Skills           []string        `json:"skills"`
	Cost             decimal.Decimal `json:"cost"`
	BilledSeparately bool            `json:"billed_separately,omitempty"`
	Paid             bool            `json:"paid,omitempty"`
}

func contractorName(c *entity.Contractor) string {
	if c == nil {
		return ""
	}
	return c.Name
}

// PublicQuoteView is the token-gated quote page payload
type PublicQuoteView struct {
	ID          uuid.UUID            `json:"id"`
	Number      string               `json:"number"`
	Title       string               `json:"title"`
	Status      string               `json:"status"`
	ClientName  string               `json:"client_name"`
	ValidUntil  *time.Time           `json:"valid_until,omitempty"`
	Items       []LineView           `json:"items"`
	Contractors []ContractorLineView `json:"contractors"`
	Amounts     entity.Amounts       `json:"amounts"`
	Notes       *string              `json:"notes,omitempty"`
	Business    BusinessView         `json:"business"`
}

// NewPublicQuoteView strips owner-only fields from a quote
func NewPublicQuoteView(p *service.PublicQuote) PublicQuoteView {
	q := p.Quote
	v := PublicQuoteView{
		ID:          q.ID,
		Number:      q.Number,
		Title:       q.Title,
		Status:      q.Status.String(),
		ValidUntil:  q.ValidUntil,
		Items:       make([]LineView, 0, len(q.Items)),
		Contractors: make([]ContractorLineView, 0, len(q.Contractors)),
		Amounts:     q.Amounts,
		Notes:       q.Notes,
		Business:    businessView(p.Settings),
	}
	if q.Client != nil {
		v.ClientName = q.Client.Name
	}
	for _, it := range q.Items {
		v.Items = append(v.Items, LineView{
			ServiceName: it.ServiceName,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
			Taxable:     it.Taxable,
		})
	}
	for _, a := range q.Contractors {
		if !a.IncludeInTotal {
			continue
		}
		v.Contractors = append(v.Contractors, ContractorLineView{
			Name:   contractorName(a.Contractor),
			Skills: a.Skills,
			Cost:   a.Cost,
		})
	}
	return v
}

// PublicInvoiceView is the token-gated invoice page payload
type PublicInvoiceView struct {
	ID          uuid.UUID            `json:"id"`
	Number      string               `json:"number"`
	Title       string               `json:"title"`
	Status      string               `json:"status"`
	ClientName  string               `json:"client_name"`
	DueDate     *time.Time           `json:"due_date,omitempty"`
	IssuedAt    *time.Time           `json:"issued_at,omitempty"`
	PaidDate    *time.Time           `json:"paid_date,omitempty"`
	Items       []LineView           `json:"items"`
	Contractors []ContractorLineView `json:"contractors"`
	Amounts     entity.Amounts       `json:"amounts"`
	Balance     decimal.Decimal      `json:"balance"`
	Notes       *string              `json:"notes,omitempty"`
	Business    BusinessView         `json:"business"`
}

// NewPublicInvoiceView strips owner-only fields from an invoice
func NewPublicInvoiceView(p *service.PublicInvoice) PublicInvoiceView {
	inv := p.Invoice
	v := PublicInvoiceView{
		ID:          inv.ID,
		Number:      inv.Number,
		Title:       inv.Title,
		Status:      inv.Status.String(),
		DueDate:     inv.DueDate,
		IssuedAt:    inv.IssuedAt,
		PaidDate:    inv.PaidDate,
		Items:       make([]LineView, 0, len(inv.Items)),
		Contractors: make([]ContractorLineView, 0, len(inv.Contractors)),
		Amounts:     inv.Amounts,
		Balance:     p.Balance,
		Notes:       inv.Notes,
		Business:    businessView(p.Settings),
	}
	if inv.Client != nil {
		v.ClientName = inv.Client.Name
	}
	for _, it := range inv.Items {
		v.Items = append(v.Items, LineView{
			ServiceName: it.ServiceName,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
			Taxable:     it.Taxable,
		})
	}
	for _, a := range inv.Contractors {
		if !a.IncludeInTotal && !a.BilledSeparately {
			continue
		}
		v.Contractors = append(v.Contractors, ContractorLineView{
			Name:             contractorName(a.Contractor),
			Skills:           a.Skills,
			Cost:             a.Cost,
			BilledSeparately: a.BilledSeparately,
			Paid:             a.FeePaidAt != nil,
		})
	}
	return v
}

// FeeBatchView is the contractor fee payment page payload
type FeeBatchView struct {
	InvoiceNumber string               `json:"invoice_number"`
	InvoiceTitle  string               `json:"invoice_title"`
	ClientName    string               `json:"client_name"`
	Contractors   []ContractorLineView `json:"contractors"`
	Total         decimal.Decimal      `json:"total"`
	Paid          bool                 `json:"paid"`
	Business      BusinessView         `json:"business"`
}

// NewFeeBatchView renders a separately billed contractor batch
func NewFeeBatchView(b *service.FeeBatch) FeeBatchView {
	v := FeeBatchView{
		InvoiceNumber: b.Invoice.Number,
		InvoiceTitle:  b.Invoice.Title,
		Contractors:   make([]ContractorLineView, 0, len(b.Contractors)),
		Total:         b.Total,
		Paid:          b.Paid,
		Business:      businessView(b.Settings),
	}
	if b.Invoice.Client != nil {
		v.ClientName = b.Invoice.Client.Name
	}
	for _, a := range b.Contractors {
		v.Contractors = append(v.Contractors, ContractorLineView{
			Name:             contractorName(a.Contractor),
			Skills:           a.Skills,
			Cost:             a.Cost,
			BilledSeparately: true,
			Paid:             a.FeePaidAt != nil,
		})
	}
	return v
}
