package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts)))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestMetadataShapes(t *testing.T) {
	quoteID := uuid.New()
	m, err := ParseMetadata(Metadata{Kind: KindQuote, QuoteID: quoteID, Mode: ModeCheckout}.Map())
	require.NoError(t, err)
	assert.Equal(t, KindQuote, m.Kind)
	assert.Equal(t, quoteID, m.QuoteID)
	assert.Equal(t, ModeCheckout, m.Mode)

	invoiceID := uuid.New()
	m, err = ParseMetadata(Metadata{Kind: KindContractorFee, InvoiceID: invoiceID, FeeToken: "tok"}.Map())
	require.NoError(t, err)
	assert.Equal(t, invoiceID, m.InvoiceID)
	assert.Equal(t, "tok", m.FeeToken)
	assert.Equal(t, ModePaymentIntent, m.Mode)
}

func TestMetadataRejectsUnknownShapes(t *testing.T) {
	cases := []map[string]string{
		nil,
		{"kind": "subscription"},
		{"kind": "quote"},
		{"kind": "quote", "quote_id": "not-a-uuid"},
		{"kind": "contractor_fee", "invoice_id": uuid.NewString()},
	}
	for _, raw := range cases {
		_, err := ParseMetadata(raw)
		assert.ErrorIs(t, err, ErrInvalidMetadata, "%v", raw)
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(16000), ToMinorUnits(decimal.RequireFromString("160"), "usd"))
	assert.Equal(t, int64(1999), ToMinorUnits(decimal.RequireFromString("19.99"), "USD"))
	assert.True(t, FromMinorUnits(1999, "usd").Equal(decimal.RequireFromString("19.99")))

	assert.Equal(t, int64(5000), ToMinorUnits(decimal.RequireFromString("5000"), "jpy"))
	assert.Equal(t, int64(1235), ToMinorUnits(decimal.RequireFromString("1234.5"), "JPY"))
	assert.True(t, FromMinorUnits(5000, "jpy").Equal(decimal.NewFromInt(5000)))

	assert.Equal(t, int64(12340), ToMinorUnits(decimal.RequireFromString("12.34"), "kwd"))
	assert.True(t, FromMinorUnits(12340, "kwd").Equal(decimal.RequireFromString("12.34")))
}

func TestVerifyPaymentIntentSucceeded(t *testing.T) {
	quoteID := uuid.New()
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": "pi_1",
			"object": "payment_intent",
			"amount": 16000,
			"amount_received": 16000,
			"currency": "usd",
			"status": "succeeded",
			"metadata": {"kind": "quote", "quote_id": %q, "payment_mode": "payment_intent"}
		}}
	}`, quoteID))

	ev, err := NewVerifier(testSecret).Verify(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventPaymentSucceeded, ev.Type)
	require.NotNil(t, ev.Payment)
	assert.Equal(t, "pi_1", ev.Payment.PaymentIntentID)
	assert.True(t, ev.Payment.Amount.Equal(decimal.NewFromInt(160)))
	assert.True(t, ev.Payment.Paid)

	md, err := ev.Payment.Metadata()
	require.NoError(t, err)
	assert.Equal(t, quoteID, md.QuoteID)
}

func TestVerifyCheckoutSessionWithStringIntent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_2",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"object": "checkout.session",
			"amount_total": 5000,
			"currency": "usd",
			"payment_status": "paid",
			"payment_intent": "pi_9",
			"metadata": {"kind": "invoice", "invoice_id": "6a1c8a1e-1c47-4d1c-9e7f-3d2f0a5b8c11"}
		}}
	}`)

	ev, err := NewVerifier(testSecret).Verify(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "pi_9", ev.Payment.PaymentIntentID)
	assert.Equal(t, "cs_1", ev.Payment.ObjectID)
	assert.True(t, ev.Payment.Paid)
}

func TestVerifyZeroDecimalAndExpandedIntent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_6",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_2",
			"object": "checkout.session",
			"amount_total": 16000,
			"currency": "jpy",
			"payment_status": "paid",
			"payment_intent": {"id": "pi_7", "object": "payment_intent", "amount": 16000, "currency": "jpy", "status": "succeeded"},
			"metadata": {"kind": "invoice", "invoice_id": "6a1c8a1e-1c47-4d1c-9e7f-3d2f0a5b8c11"}
		}}
	}`)

	ev, err := NewVerifier(testSecret).Verify(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "pi_7", ev.Payment.PaymentIntentID)
	assert.Equal(t, "jpy", ev.Payment.Currency)
	assert.True(t, ev.Payment.Amount.Equal(decimal.NewFromInt(16000)), ev.Payment.Amount.String())
}

func TestVerifyPaymentFailedCarriesReason(t *testing.T) {
	payload := []byte(`{
		"id": "evt_7",
		"object": "event",
		"type": "payment_intent.payment_failed",
		"data": {"object": {
			"id": "pi_8",
			"object": "payment_intent",
			"amount": 2500,
			"currency": "usd",
			"status": "requires_payment_method",
			"last_payment_error": {"type": "card_error", "code": "card_declined", "message": "Your card was declined."},
			"metadata": {"kind": "invoice", "invoice_id": "6a1c8a1e-1c47-4d1c-9e7f-3d2f0a5b8c11"}
		}}
	}`)

	ev, err := NewVerifier(testSecret).Verify(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.False(t, ev.Payment.Paid)
	assert.Equal(t, "Your card was declined.", ev.Payment.FailureMessage)
	assert.True(t, ev.Payment.Amount.Equal(decimal.NewFromInt(25)))
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_3","object":"event","type":"payment_intent.succeeded","data":{"object":{}}}`)

	_, err := NewVerifier(testSecret).Verify(payload, sign(payload, "whsec_other", time.Now()))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = NewVerifier(testSecret).Verify(payload, "garbage")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_4","object":"event","type":"payment_intent.succeeded","data":{"object":{}}}`)

	_, err := NewVerifier(testSecret).Verify(payload, sign(payload, testSecret, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyUnhandledTypeHasNoPayment(t *testing.T) {
	payload := []byte(`{"id":"evt_5","object":"event","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)

	ev, err := NewVerifier(testSecret).Verify(payload, sign(payload, testSecret, time.Now()))
	require.NoError(t, err)
	assert.Nil(t, ev.Payment)
}

func TestUnconfiguredGateway(t *testing.T) {
	_, err := NewStripeGateway("", "usd").CreatePaymentIntent(context.Background(), IntentRequest{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
