package totals

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func TestComputeMixedTaxable(t *testing.T) {
	r := Compute([]Line{
		{Quantity: d("1"), UnitPrice: d("100"), Total: d("100"), Taxable: true},
		{Quantity: d("1"), UnitPrice: d("50"), Total: d("50"), Taxable: false},
	}, d("10"))

	assertDec(t, "150", r.Subtotal)
	assertDec(t, "100", r.TaxableAmount)
	assertDec(t, "10", r.TaxAmount)
	assertDec(t, "160", r.Total)
}

func TestComputeEmpty(t *testing.T) {
	r := Compute(nil, d("20"))
	assertDec(t, "0", r.Subtotal)
	assertDec(t, "0", r.TaxAmount)
	assertDec(t, "0", r.Total)
}

func TestComputeTrustsLineTotal(t *testing.T) {
	// a discounted line whose total differs from quantity × price
	r := Compute([]Line{{Quantity: d("3"), UnitPrice: d("100"), Total: d("250"), Taxable: true}}, d("0"))
	assertDec(t, "250", r.Subtotal)
}

func TestComputeInvariantHolds(t *testing.T) {
	lines := []Line{
		{Total: d("19.99"), Taxable: true},
		{Total: d("0.01"), Taxable: true},
		{Total: d("333.33"), Taxable: false},
		{Total: d("12.345"), Taxable: true},
	}
	for _, rate := range []string{"0", "7.25", "8.875", "100", "150"} {
		r := Compute(lines, d(rate))
		sum := decimal.Zero
		taxable := decimal.Zero
		for _, l := range lines {
			sum = sum.Add(l.Total)
			if l.Taxable {
				taxable = taxable.Add(l.Total)
			}
		}
		assertDec(t, sum.String(), r.Subtotal)
		assertDec(t, taxable.Mul(d(rate)).Div(d("100")).String(), r.TaxAmount)
		assertDec(t, r.Subtotal.Add(r.TaxAmount).String(), r.Total)
	}
}

func TestNoPennyDrift(t *testing.T) {
	lines := make([]Line, 0, 10)
	for i := 0; i < 10; i++ {
		lines = append(lines, Line{Total: d("0.1"), Taxable: true})
	}
	r := Compute(lines, d("0"))
	assertDec(t, "1", r.Subtotal)
}

func TestLineTotal(t *testing.T) {
	assertDec(t, "37.5", LineTotal(d("2.5"), d("15"), nil))
	manual := d("30")
	assertDec(t, "30", LineTotal(d("2.5"), d("15"), &manual))
}

func TestContractorFees(t *testing.T) {
	fees := ContractorFees([]Assignment{
		{Cost: d("200"), IncludeInTotal: true},
		{Cost: d("150"), IncludeInTotal: true, BilledSeparately: true},
		{Cost: d("75"), IncludeInTotal: false},
	})
	assertDec(t, "200", fees)
}

func TestAssignmentCost(t *testing.T) {
	hours := d("3.5")
	assertDec(t, "175", AssignmentCost(true, d("50"), &hours, nil))
	assertDec(t, "0", AssignmentCost(true, d("50"), nil, nil))
	assertDec(t, "400", AssignmentCost(false, d("400"), &hours, nil))
	manual := d("99")
	assertDec(t, "99", AssignmentCost(true, d("50"), &hours, &manual))
}

func TestRoundMoney(t *testing.T) {
	assertDec(t, "0.89", RoundMoney(d("0.8875")))
	assertDec(t, "1.01", RoundMoney(d("1.005")))
}
