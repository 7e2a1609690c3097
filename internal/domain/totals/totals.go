// Package totals derives billing document amounts from line items and
// contractor assignments. All arithmetic is exact; rounding to cents only
// happens when a header is persisted.
package totals

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line is one billable row
type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
	Taxable   bool
}

// Result is the item side of a document header
type Result struct {
	Subtotal      decimal.Decimal
	TaxableAmount decimal.Decimal
	TaxAmount     decimal.Decimal
	Total         decimal.Decimal
}

// Compute sums lines and applies taxRate (a percentage) to the taxable part.
// Line totals are taken as given.
func Compute(lines []Line, taxRate decimal.Decimal) Result {
	subtotal := decimal.Zero
	taxable := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total)
		if l.Taxable {
			taxable = taxable.Add(l.Total)
		}
	}
	tax := taxable.Mul(taxRate).Div(hundred)
	return Result{
		Subtotal:      subtotal,
		TaxableAmount: taxable,
		TaxAmount:     tax,
		Total:         subtotal.Add(tax),
	}
}

// LineTotal returns the stored total for a line, falling back to
// quantity × unit price when the caller did not supply one.
func LineTotal(quantity, unitPrice decimal.Decimal, total *decimal.Decimal) decimal.Decimal {
	if total != nil {
		return *total
	}
	return quantity.Mul(unitPrice)
}

// Assignment is the billing view of a contractor on a document
type Assignment struct {
	Cost             decimal.Decimal
	IncludeInTotal   bool
	BilledSeparately bool
}

// ContractorFees sums the assignments the client pays as part of the
// document itself. Separately billed fees are collected through their own
// payment link.
func ContractorFees(assignments []Assignment) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range assignments {
		if a.IncludeInTotal && !a.BilledSeparately {
			sum = sum.Add(a.Cost)
		}
	}
	return sum
}

// AssignmentCost returns the manual cost when given. Otherwise hourly
// assignments cost rate × hours and flat ones cost the rate.
func AssignmentCost(hourly bool, rate decimal.Decimal, hours, manual *decimal.Decimal) decimal.Decimal {
	if manual != nil {
		return *manual
	}
	if hourly {
		if hours == nil {
			return decimal.Zero
		}
		return rate.Mul(*hours)
	}
	return rate
}

// RoundMoney rounds to cents, half away from zero
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
