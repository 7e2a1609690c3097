package entity

import (
	"github.com/sangkips/studio-billing-api/internal/domain/totals"
	"github.com/shopspring/decimal"
)

// Amounts is the money header shared by quotes and invoices.
// Total = Subtotal + TaxAmount covers line items only; AmountDue adds the
// contractor fees the client pays with the document.
type Amounts struct {
	TaxRate         decimal.Decimal `gorm:"type:decimal(7,3)" json:"tax_rate"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(15,2)" json:"subtotal"`
	TaxableAmount   decimal.Decimal `gorm:"type:decimal(15,2)" json:"taxable_amount"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(15,2)" json:"tax_amount"`
	Total           decimal.Decimal `gorm:"type:decimal(15,2)" json:"total"`
	ContractorTotal decimal.Decimal `gorm:"type:decimal(15,2)" json:"contractor_total"`
	AmountDue       decimal.Decimal `gorm:"type:decimal(15,2)" json:"amount_due"`
}

// Apply stores a computed result, rounded to cents
func (a *Amounts) Apply(r totals.Result, contractorFees decimal.Decimal) {
	a.Subtotal = totals.RoundMoney(r.Subtotal)
	a.TaxableAmount = totals.RoundMoney(r.TaxableAmount)
	a.TaxAmount = totals.RoundMoney(r.TaxAmount)
	a.Total = a.Subtotal.Add(a.TaxAmount)
	a.ContractorTotal = totals.RoundMoney(contractorFees)
	a.AmountDue = a.Total.Add(a.ContractorTotal)
}
