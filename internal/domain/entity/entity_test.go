package entity

import (
	"testing"
	"time"

	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentSetStatusProcessedAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Payment{}

	p.SetStatus(enum.PaymentStatusPending, now)
	assert.Nil(t, p.ProcessedAt)

	p.SetStatus(enum.PaymentStatusCompleted, now)
	require.NotNil(t, p.ProcessedAt)
	assert.Equal(t, now, *p.ProcessedAt)

	// staying completed keeps the original timestamp
	p.SetStatus(enum.PaymentStatusCompleted, now.Add(time.Hour))
	assert.Equal(t, now, *p.ProcessedAt)

	p.SetStatus(enum.PaymentStatusFailed, now)
	assert.Nil(t, p.ProcessedAt)
}

func TestInvoiceRecomputeExcludesSeparateFees(t *testing.T) {
	inv := &Invoice{Amounts: Amounts{TaxRate: decimal.NewFromInt(10)}}
	inv.Recompute(
		[]InvoiceItem{
			{Total: decimal.NewFromInt(100), Taxable: true},
			{Total: decimal.NewFromInt(50)},
		},
		[]InvoiceContractor{
			{Cost: decimal.NewFromInt(200), IncludeInTotal: true},
			{Cost: decimal.NewFromInt(80), IncludeInTotal: true, BilledSeparately: true},
			{Cost: decimal.NewFromInt(30)},
		},
	)

	assert.True(t, inv.Total.Equal(decimal.NewFromInt(160)))
	assert.True(t, inv.ContractorTotal.Equal(decimal.NewFromInt(200)))
	assert.True(t, inv.AmountDue.Equal(decimal.NewFromInt(360)))
}

func TestQuoteExpiry(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	q := &Quote{Status: enum.QuoteStatusSent, ValidUntil: &past}
	assert.True(t, q.IsExpiredAt(now))

	q.Status = enum.QuoteStatusDraft
	assert.False(t, q.IsExpiredAt(now))
}
