package enum

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteTransitions(t *testing.T) {
	assert.True(t, QuoteStatusDraft.CanTransitionTo(QuoteStatusSent))
	assert.True(t, QuoteStatusSent.CanTransitionTo(QuoteStatusApproved))
	assert.True(t, QuoteStatusExpired.CanTransitionTo(QuoteStatusSent))

	assert.False(t, QuoteStatusDraft.CanTransitionTo(QuoteStatusApproved))
	assert.False(t, QuoteStatusExpired.CanTransitionTo(QuoteStatusApproved))
	for _, terminal := range []QuoteStatus{QuoteStatusApproved, QuoteStatusRejected} {
		assert.True(t, terminal.IsTerminal())
		for next := QuoteStatusDraft; next <= QuoteStatusExpired; next++ {
			assert.False(t, terminal.CanTransitionTo(next), "%s -> %s", terminal, next)
		}
	}
}

func TestInvoiceTransitions(t *testing.T) {
	assert.True(t, InvoiceStatusOverdue.CanTransitionTo(InvoiceStatusPaid))
	assert.True(t, InvoiceStatusOverdue.CanTransitionTo(InvoiceStatusCancelled))
	assert.False(t, InvoiceStatusPaid.CanTransitionTo(InvoiceStatusCancelled))
	assert.False(t, InvoiceStatusDraft.CanTransitionTo(InvoiceStatusPaid))
	assert.True(t, InvoiceStatusOverdue.IsPayable())
	assert.False(t, InvoiceStatusDraft.IsPayable())
}

func TestStatusJSON(t *testing.T) {
	b, err := json.Marshal(QuoteStatusExpired)
	require.NoError(t, err)
	assert.Equal(t, `"expired"`, string(b))

	var s InvoiceStatus
	require.NoError(t, json.Unmarshal([]byte(`"overdue"`), &s))
	assert.Equal(t, InvoiceStatusOverdue, s)

	assert.Error(t, json.Unmarshal([]byte(`"archived"`), &s))
}

func TestStatusScan(t *testing.T) {
	var p PaymentStatus
	require.NoError(t, p.Scan(int64(1)))
	assert.Equal(t, PaymentStatusCompleted, p)

	v, err := PaymentStatusFailed.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}
