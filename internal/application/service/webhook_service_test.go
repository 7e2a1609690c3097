package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/testutil"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quoteMeta(id uuid.UUID) payment.Metadata {
	return payment.Metadata{Kind: payment.KindQuote, QuoteID: id, Mode: payment.ModePaymentIntent}
}

func TestWebhookApprovesQuoteOnce(t *testing.T) {
	h := newHarness(t)
	q := h.sendQuote(h.createQuote("10", line("Mixing", "1", "100", true)).ID)
	mailsBefore := h.mailer.Count()

	payload := testutil.PaymentEvent("evt_approve", payment.EventPaymentSucceeded, q.AmountDue, quoteMeta(q.ID))

	res, err := h.deliver(payload)
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeApplied, res.Outcome)
	assert.False(t, res.Duplicate)

	res, err = h.deliver(payload)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	q, err = h.quotes.GetQuote(h.ctx, h.user.ID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.QuoteStatusApproved, q.Status)
	require.NotNil(t, q.ApprovedAt)
	assert.Equal(t, 1, h.activity(entity.SubjectQuote, q.ID, entity.ActionQuoteApproved))
	assert.Equal(t, int64(1), h.count(&entity.ProcessedWebhookEvent{}))
	// one receipt for the single applied event
	assert.Equal(t, mailsBefore+1, h.mailer.Count())
}

func TestWebhookBadSignatureChangesNothing(t *testing.T) {
	h := newHarness(t)
	q := h.sendQuote(h.createQuote("0", line("Mixing", "1", "100", true)).ID)
	payload := testutil.PaymentEvent("evt_forged", payment.EventPaymentSucceeded, q.AmountDue, quoteMeta(q.ID))

	_, err := h.webhooks.HandleStripe(h.ctx, payload, testutil.SignWebhook(payload, "whsec_wrong", time.Now()))
	requireKind(t, err, apperror.KindInvalidInput)

	_, err = h.webhooks.HandleStripe(h.ctx, payload, "")
	requireKind(t, err, apperror.KindInvalidInput)

	assert.Zero(t, h.count(&entity.ProcessedWebhookEvent{}))
	q, err = h.quotes.GetQuote(h.ctx, h.user.ID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.QuoteStatusSent, q.Status)
}

func TestWebhookOnDecidedQuoteIsConflict(t *testing.T) {
	h := newHarness(t)
	q := h.sendQuote(h.createQuote("0", line("Mixing", "1", "100", true)).ID)
	_, err := h.quotes.RejectQuote(h.ctx, &RejectQuoteInput{ID: q.ID, Token: *q.ApprovalToken})
	require.NoError(t, err)

	res, err := h.deliver(testutil.PaymentEvent("evt_late", payment.EventPaymentSucceeded, q.AmountDue, quoteMeta(q.ID)))
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeConflict, res.Outcome)

	q, err = h.quotes.GetQuote(h.ctx, h.user.ID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.QuoteStatusRejected, q.Status)
	assert.Zero(t, h.activity(entity.SubjectQuote, q.ID, entity.ActionQuoteApproved))
	assert.Equal(t, int64(1), h.count(&entity.ProcessedWebhookEvent{}))
}

func TestWebhookUnknownTargetIsAcknowledged(t *testing.T) {
	h := newHarness(t)

	res, err := h.deliver(testutil.PaymentEvent("evt_ghost", payment.EventPaymentSucceeded, dec("10"), quoteMeta(uuid.New())))
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeNotFound, res.Outcome)

	res, err = h.deliver(testutil.PaymentEvent("evt_ghost_inv", payment.EventPaymentSucceeded, dec("10"),
		payment.Metadata{Kind: payment.KindInvoice, InvoiceID: uuid.New()}))
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeNotFound, res.Outcome)
	assert.Equal(t, int64(2), h.count(&entity.ProcessedWebhookEvent{}))
}

func TestWebhookIgnoresUnrelatedEvents(t *testing.T) {
	h := newHarness(t)

	payload := []byte(`{"id":"evt_cust","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)
	res, err := h.deliver(payload)
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeIgnored, res.Outcome)

	res, err = h.deliver(testutil.PaymentEvent("evt_nometa", payment.EventPaymentSucceeded, dec("10"), payment.Metadata{}))
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeIgnored, res.Outcome)
}

func TestWebhookCheckoutSettlesOnSessionCompleted(t *testing.T) {
	h := newHarness(t)
	q := h.sendQuote(h.createQuote("0", line("Mastering", "1", "80", true)).ID)
	md := payment.Metadata{Kind: payment.KindQuote, QuoteID: q.ID, Mode: payment.ModeCheckout}

	res, err := h.deliver(testutil.PaymentEvent("evt_co_intent", payment.EventPaymentSucceeded, q.AmountDue, md))
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeIgnored, res.Outcome)

	got, err := h.quotes.GetQuote(h.ctx, h.user.ID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.QuoteStatusSent, got.Status)

	res, err = h.deliver(testutil.PaymentEvent("evt_co_session", payment.EventCheckoutCompleted, q.AmountDue, md))
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeApplied, res.Outcome)

	got, err = h.quotes.GetQuote(h.ctx, h.user.ID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.QuoteStatusApproved, got.Status)
}

func TestWebhookPaysInvoice(t *testing.T) {
	h := newHarness(t)
	inv := h.sendInvoice(h.createInvoice("10", line("Tracking day", "1", "100", true)).ID)
	md := payment.Metadata{Kind: payment.KindInvoice, InvoiceID: inv.ID}

	res, err := h.deliver(testutil.PaymentEvent("evt_inv", payment.EventPaymentSucceeded, inv.AmountDue, md))
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeApplied, res.Outcome)

	inv, err = h.invoices.GetInvoice(h.ctx, h.user.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusPaid, inv.Status)
	require.NotNil(t, inv.PaidDate)

	var payments []entity.Payment
	require.NoError(t, h.db.Where("invoice_id = ?", inv.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	p := payments[0]
	assert.Equal(t, enum.PaymentStatusCompleted, p.Status)
	assert.Equal(t, enum.PaymentMethodStripe, p.Method)
	require.NotNil(t, p.ProcessedAt)
	require.NotNil(t, p.ProcessorPaymentID)
	assert.Equal(t, "pi_evt_inv", *p.ProcessorPaymentID)
	requireMoney(t, "110", p.Amount)

	assert.Equal(t, 1, h.activity(entity.SubjectInvoice, inv.ID, entity.ActionPaymentRecorded))
	assert.Equal(t, 1, h.activity(entity.SubjectInvoice, inv.ID, entity.ActionInvoicePaid))
}

func TestWebhookFailedInvoicePayment(t *testing.T) {
	h := newHarness(t)
	inv := h.sendInvoice(h.createInvoice("0", line("Tracking day", "1", "400", true)).ID)
	md := payment.Metadata{Kind: payment.KindInvoice, InvoiceID: inv.ID}

	res, err := h.deliver(testutil.PaymentEvent("evt_declined", payment.EventPaymentFailed, inv.AmountDue, md))
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeApplied, res.Outcome)

	var payments []entity.Payment
	require.NoError(t, h.db.Where("invoice_id = ?", inv.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, enum.PaymentStatusFailed, payments[0].Status)
	assert.Nil(t, payments[0].ProcessedAt)

	inv, err = h.invoices.GetInvoice(h.ctx, h.user.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusSent, inv.Status)
	assert.Equal(t, 1, h.activity(entity.SubjectInvoice, inv.ID, entity.ActionPaymentFailed))
}

func TestWebhookPaymentOnCancelledInvoiceIsConflict(t *testing.T) {
	h := newHarness(t)
	inv := h.sendInvoice(h.createInvoice("0", line("Tracking day", "1", "400", true)).ID)
	_, err := h.invoices.CancelInvoice(h.ctx, h.user.ID, inv.ID, "owner@studio.test", "session cancelled")
	require.NoError(t, err)

	res, err := h.deliver(testutil.PaymentEvent("evt_too_late", payment.EventPaymentSucceeded, inv.AmountDue,
		payment.Metadata{Kind: payment.KindInvoice, InvoiceID: inv.ID}))
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeConflict, res.Outcome)
	assert.Zero(t, h.count(&entity.Payment{}))
}

func TestWebhookPaysContractorFeeBatch(t *testing.T) {
	h := newHarness(t)
	inv := h.createInvoice("0", line("Tracking day", "1", "400", true))
	drums := h.contractorOf("Dee Drums", "150")
	bass := h.contractorOf("Sam Bass", "120")
	h.assign(inv.ID, drums, true)
	h.assign(inv.ID, bass, true)
	h.sendInvoice(inv.ID)

	billed, err := h.billing.BulkBillSeparately(h.ctx, h.user.ID, inv.ID, []uuid.UUID{drums.ID, bass.ID}, "owner@studio.test")
	require.NoError(t, err)
	md := payment.Metadata{Kind: payment.KindContractorFee, InvoiceID: inv.ID, FeeToken: billed.Token}

	res, err := h.deliver(testutil.PaymentEvent("evt_fees", payment.EventPaymentSucceeded, dec("270"), md))
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeApplied, res.Outcome)

	batch, err := h.billing.GetFeeBatch(h.ctx, billed.Token)
	require.NoError(t, err)
	assert.True(t, batch.Paid)
	requireMoney(t, "270", batch.Total)
	for _, m := range batch.Contractors {
		assert.NotNil(t, m.FeePaidAt)
	}
	assert.Equal(t, 1, h.activity(entity.SubjectInvoice, inv.ID, entity.ActionContractorFeePaid))
	assert.Zero(t, h.count(&entity.Payment{}))

	res, err = h.deliver(testutil.PaymentEvent("evt_fees_again", payment.EventPaymentSucceeded, dec("270"), md))
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeConflict, res.Outcome)

	_, err = h.billing.StartPayment(h.ctx, billed.Token, payment.ModePaymentIntent)
	requireKind(t, err, apperror.KindConflict)
}

func TestWebhookOnLapsedQuoteExpiresIt(t *testing.T) {
	h := newHarness(t)
	q := h.createQuote("0", line("Mixing", "1", "100", true))
	validUntil := testNow.Add(24 * time.Hour)
	res, err := h.quotes.SendQuote(h.ctx, &SendQuoteInput{UserID: h.user.ID, ID: q.ID, ValidUntil: &validUntil})
	require.NoError(t, err)
	q = res.Quote

	h.clock.Advance(48 * time.Hour)
	out, err := h.deliver(testutil.PaymentEvent("evt_lapsed", payment.EventPaymentSucceeded, q.AmountDue, quoteMeta(q.ID)))
	require.NoError(t, err)
	assert.Equal(t, entity.WebhookOutcomeConflict, out.Outcome)

	stored, err := h.repos.Quotes.GetByID(h.ctx, h.user.ID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.QuoteStatusExpired, stored.Status)
	assert.Nil(t, stored.ApprovedAt)
	assert.Equal(t, 1, h.activity(entity.SubjectQuote, q.ID, entity.ActionQuoteExpired))
	assert.Zero(t, h.activity(entity.SubjectQuote, q.ID, entity.ActionQuoteApproved))
	assert.Equal(t, int64(1), h.count(&entity.ProcessedWebhookEvent{}))
}
