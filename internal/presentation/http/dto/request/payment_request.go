package request

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordPaymentRequest represents a manually recorded payment
type RecordPaymentRequest struct {
	InvoiceID uuid.UUID       `json:"invoice_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required,money"`
	Method    string          `json:"method" binding:"required,payment_method"`
	Reference *string         `json:"reference" binding:"omitempty,max=255"`
	Status    *string         `json:"status" binding:"omitempty,oneof=pending completed failed"`
	Notes     *string         `json:"notes"`
}

// UpdatePaymentRequest represents a payment update request
type UpdatePaymentRequest struct {
	Amount    *decimal.Decimal `json:"amount" binding:"omitempty,money"`
	Method    *string          `json:"method" binding:"omitempty,payment_method"`
	Reference *string          `json:"reference" binding:"omitempty,max=255"`
	Status    *string          `json:"status" binding:"omitempty,oneof=pending completed failed"`
	Notes     *string          `json:"notes"`
}

// PaymentFilterRequest represents payment filter parameters
type PaymentFilterRequest struct {
	InvoiceID string `form:"invoice_id"`
	Status    string `form:"status"`
	Page      int    `form:"page"`
	PerPage   int    `form:"per_page"`
}

// PaymentIntentRequest starts a processor payment. Token is required on
// public routes and ignored on authenticated ones.
type PaymentIntentRequest struct {
	Token string `json:"token"`
	Mode  string `json:"mode" binding:"omitempty,oneof=payment_intent checkout"`
}
