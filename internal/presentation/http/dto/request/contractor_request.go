package request

import "github.com/shopspring/decimal"

// CreateContractorRequest represents a contractor creation request
type CreateContractorRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=255"`
	Email       *string         `json:"email" binding:"omitempty,email,max=255"`
	Phone       *string         `json:"phone" binding:"omitempty,max=50"`
	PricingMode string          `json:"pricing_mode" binding:"required,pricing_mode"`
	HourlyRate  decimal.Decimal `json:"hourly_rate" binding:"money"`
	FlatRate    decimal.Decimal `json:"flat_rate" binding:"money"`
	Skills      []string        `json:"skills" binding:"omitempty,dive,min=1,max=100"`
	Active      *bool           `json:"active"`
}

// UpdateContractorRequest represents a contractor update request
type UpdateContractorRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=255"`
	Email       *string          `json:"email" binding:"omitempty,email,max=255"`
	Phone       *string          `json:"phone" binding:"omitempty,max=50"`
	PricingMode *string          `json:"pricing_mode" binding:"omitempty,pricing_mode"`
	HourlyRate  *decimal.Decimal `json:"hourly_rate" binding:"omitempty,money"`
	FlatRate    *decimal.Decimal `json:"flat_rate" binding:"omitempty,money"`
	Skills      []string         `json:"skills" binding:"omitempty,dive,min=1,max=100"`
	Active      *bool            `json:"active"`
}

// ContractorFilterRequest represents contractor filter parameters
type ContractorFilterRequest struct {
	ListRequest
	ActiveOnly bool `form:"active"`
}
