package request

import "github.com/shopspring/decimal"

// TemplateRequest is used for both creating and updating a service
// template. Create requires a name.
type TemplateRequest struct {
	Name           *string          `json:"name" binding:"omitempty,min=1,max=255"`
	Category       *string          `json:"category" binding:"omitempty,min=1,max=100"`
	Description    *string          `json:"description"`
	BasePrice      *decimal.Decimal `json:"base_price" binding:"omitempty,money"`
	DefaultTaxable *bool            `json:"default_taxable"`
}
