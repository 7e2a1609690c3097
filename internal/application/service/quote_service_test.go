package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/internal/domain/totals"
	"github.com/sangkips/studio-billing-api/internal/testutil"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkQuoteTotals asserts the header agrees with the stored items
func checkQuoteTotals(t *testing.T, q *entity.Quote) {
	t.Helper()
	subtotal, taxable := decimal.Zero, decimal.Zero
	for _, it := range q.Items {
		subtotal = subtotal.Add(it.Total)
		if it.Taxable {
			taxable = taxable.Add(it.Total)
		}
	}
	tax := totals.RoundMoney(taxable.Mul(q.TaxRate).Div(decimal.NewFromInt(100)))
	requireMoney(t, subtotal.String(), q.Subtotal)
	requireMoney(t, tax.String(), q.TaxAmount)
	requireMoney(t, q.Subtotal.Add(q.TaxAmount).String(), q.Total)
}

func TestQuoteTotalsMixedTaxable(t *testing.T) {
	h := newHarness(t)

	q := h.createQuote("10",
		line("Mixing", "1", "100", true),
		line("Rehearsal room", "1", "50", false),
	)

	requireMoney(t, "150", q.Subtotal)
	requireMoney(t, "100", q.TaxableAmount)
	requireMoney(t, "10", q.TaxAmount)
	requireMoney(t, "160", q.Total)
	requireMoney(t, "160", q.AmountDue)
	assert.Equal(t, enum.QuoteStatusDraft, q.Status)
	assert.Equal(t, "Q-00001", q.Number)
}

func TestQuoteTotalsFollowItemEdits(t *testing.T) {
	h := newHarness(t)
	uid := h.user.ID

	q := h.createQuote("8.25",
		line("Tracking", "2", "40", true),
		line("Backline", "1", "19.99", false),
	)
	checkQuoteTotals(t, q)

	q, err := h.quotes.AddItem(h.ctx, uid, q.ID, line("Editing", "3", "12.5", true))
	require.NoError(t, err)
	require.Len(t, q.Items, 3)
	checkQuoteTotals(t, q)

	q, err = h.quotes.UpdateItem(h.ctx, uid, q.ID, q.Items[0].ID, ItemPatch{Quantity: decp("3")})
	require.NoError(t, err)
	requireMoney(t, "120", q.Items[0].Total)
	checkQuoteTotals(t, q)

	q, err = h.quotes.UpdateItem(h.ctx, uid, q.ID, q.Items[2].ID, ItemPatch{Taxable: flag(false)})
	require.NoError(t, err)
	checkQuoteTotals(t, q)

	q, err = h.quotes.UpdateQuote(h.ctx, &UpdateQuoteInput{UserID: uid, ID: q.ID, TaxRate: decp("20")})
	require.NoError(t, err)
	checkQuoteTotals(t, q)

	for len(q.Items) > 0 {
		q, err = h.quotes.DeleteItem(h.ctx, uid, q.ID, q.Items[0].ID)
		require.NoError(t, err)
		checkQuoteTotals(t, q)
	}
	requireMoney(t, "0", q.Subtotal)
	requireMoney(t, "0", q.TaxAmount)
	requireMoney(t, "0", q.Total)
}

func TestQuoteItemTotalIsTrusted(t *testing.T) {
	h := newHarness(t)

	in := line("Package deal", "4", "100", true)
	in.Total = decp("350")
	q := h.createQuote("0", in)

	requireMoney(t, "350", q.Items[0].Total)
	requireMoney(t, "350", q.Subtotal)
}

func TestQuoteItemDefaultsFromTemplate(t *testing.T) {
	h := newHarness(t)
	name := "Rehearsal (hourly)"

	tmpl, err := h.templates.CreateTemplate(h.ctx, &TemplateInput{
		UserID:         h.user.ID,
		Name:           &name,
		BasePrice:      decp("30"),
		DefaultTaxable: flag(false),
	})
	require.NoError(t, err)

	q := h.createQuote("10", ItemInput{Quantity: dec("2"), ServiceTemplateID: &tmpl.ID})
	require.Len(t, q.Items, 1)
	assert.Equal(t, "Rehearsal (hourly)", q.Items[0].ServiceName)
	requireMoney(t, "60", q.Items[0].Total)
	assert.False(t, q.Items[0].Taxable)
	requireMoney(t, "0", q.TaxAmount)
}

func TestQuoteContractorFeesInAmountDue(t *testing.T) {
	h := newHarness(t)
	uid := h.user.ID
	bass := testutil.CreateContractor(t, h.db, uid, "Sam Bass", enum.PricingModeHourly, "45", "bass")
	keys := h.contractorOf("Kim Keys", "200")

	q := h.createQuote("10", line("Tracking", "1", "100", true))

	q, err := h.quotes.AssignContractor(h.ctx, uid, q.ID, AssignmentInput{
		ContractorID: bass.ID,
		Skills:       []string{"bass"},
		Hours:        decp("4"),
	})
	require.NoError(t, err)
	requireMoney(t, "180", q.ContractorTotal)
	requireMoney(t, "290", q.AmountDue)

	q, err = h.quotes.AssignContractor(h.ctx, uid, q.ID, AssignmentInput{ContractorID: keys.ID, IncludeInTotal: flag(false)})
	require.NoError(t, err)
	requireMoney(t, "180", q.ContractorTotal)

	_, err = h.quotes.AssignContractor(h.ctx, uid, q.ID, AssignmentInput{ContractorID: keys.ID})
	requireKind(t, err, apperror.KindConflict)

	guitar := testutil.CreateContractor(t, h.db, uid, "Gil Strings", enum.PricingModeHourly, "30", "guitar")
	_, err = h.quotes.AssignContractor(h.ctx, uid, q.ID, AssignmentInput{ContractorID: guitar.ID, Skills: []string{"drums"}})
	requireKind(t, err, apperror.KindInvalidInput)

	q, err = h.quotes.RemoveContractor(h.ctx, uid, q.ID, bass.ID)
	require.NoError(t, err)
	requireMoney(t, "0", q.ContractorTotal)
	requireMoney(t, "110", q.AmountDue)
}

func TestQuoteExpiresOnReadAndResend(t *testing.T) {
	h := newHarness(t)
	uid := h.user.ID

	q := h.createQuote("0", line("Mixing", "1", "250", true))
	validUntil := testNow.Add(24 * time.Hour)
	res, err := h.quotes.SendQuote(h.ctx, &SendQuoteInput{UserID: uid, ID: q.ID, ValidUntil: &validUntil})
	require.NoError(t, err)
	assert.Equal(t, enum.QuoteStatusSent, res.Quote.Status)
	assert.True(t, res.EmailSent)

	h.clock.Advance(48 * time.Hour)

	q, err = h.quotes.GetQuote(h.ctx, uid, q.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.QuoteStatusExpired, q.Status)
	assert.Equal(t, 1, h.activity(entity.SubjectQuote, q.ID, entity.ActionQuoteExpired))

	n, err := h.quotes.ExpireQuotes(h.ctx, &uid)
	require.NoError(t, err)
	assert.Zero(t, n)

	past := testNow
	_, err = h.quotes.SendQuote(h.ctx, &SendQuoteInput{UserID: uid, ID: q.ID, ValidUntil: &past})
	requireKind(t, err, apperror.KindInvalidInput)

	q = h.sendQuote(q.ID)
	assert.Equal(t, enum.QuoteStatusSent, q.Status)
	require.NotNil(t, q.ValidUntil)
	assert.True(t, q.ValidUntil.After(h.clock.Now()))
	assert.Equal(t, 1, h.activity(entity.SubjectQuote, q.ID, entity.ActionQuoteResent))
}

func TestExpireQuotesSweep(t *testing.T) {
	h := newHarness(t)
	uid := h.user.ID

	stale := h.createQuote("0", line("Mixing", "1", "250", true))
	h.sendQuote(stale.ID)
	fresh := h.createQuote("0", line("Mastering", "1", "80", true))

	h.clock.Advance(31 * 24 * time.Hour)
	h.sendQuote(fresh.ID)

	n, err := h.quotes.ExpireQuotes(h.ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stale, err = h.quotes.GetQuote(h.ctx, uid, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.QuoteStatusExpired, stale.Status)
	fresh, err = h.quotes.GetQuote(h.ctx, uid, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.QuoteStatusSent, fresh.Status)
}

func TestRejectQuoteWithFeedback(t *testing.T) {
	h := newHarness(t)
	q := h.sendQuote(h.createQuote("0", line("Mixing", "1", "250", true)).ID)
	sentBefore := h.mailer.Count()

	res, err := h.quotes.RejectQuote(h.ctx, &RejectQuoteInput{ID: q.ID, Token: *q.ApprovalToken, Feedback: "  Over budget  "})
	require.NoError(t, err)
	assert.Equal(t, enum.QuoteStatusRejected, res.Quote.Status)
	require.NotNil(t, res.Quote.RejectionReason)
	assert.Equal(t, "Over budget", *res.Quote.RejectionReason)
	assert.True(t, res.AckSent)
	assert.True(t, res.AlertSent)
	assert.Equal(t, sentBefore+2, h.mailer.Count())
	assert.Equal(t, 1, h.activity(entity.SubjectQuote, q.ID, entity.ActionQuoteRejected))

	_, err = h.quotes.RejectQuote(h.ctx, &RejectQuoteInput{ID: q.ID, Token: *q.ApprovalToken})
	requireKind(t, err, apperror.KindConflict)
}

func TestRejectionSurvivesMailFailure(t *testing.T) {
	h := newHarness(t)
	q := h.sendQuote(h.createQuote("0", line("Mixing", "1", "250", true)).ID)
	h.mailer.Err = assert.AnError

	res, err := h.quotes.SubmitFeedback(h.ctx, &RejectQuoteInput{ID: q.ID, Token: *q.ApprovalToken, Feedback: "Not this time"})
	require.NoError(t, err)
	assert.Equal(t, enum.QuoteStatusRejected, res.Quote.Status)
	assert.False(t, res.AckSent)
	assert.False(t, res.AlertSent)
}

func TestSubmitFeedbackRequiresMessage(t *testing.T) {
	h := newHarness(t)
	q := h.sendQuote(h.createQuote("0", line("Mixing", "1", "250", true)).ID)

	_, err := h.quotes.SubmitFeedback(h.ctx, &RejectQuoteInput{ID: q.ID, Token: *q.ApprovalToken, Feedback: "   "})
	requireKind(t, err, apperror.KindInvalidInput)
}

func TestPublicQuoteTokenMismatchIsNotFound(t *testing.T) {
	h := newHarness(t)
	q := h.sendQuote(h.createQuote("0", line("Mixing", "1", "250", true)).ID)
	other := h.sendQuote(h.createQuote("0", line("Mastering", "1", "80", true)).ID)

	_, err := h.quotes.GetPublicQuote(h.ctx, q.ID, "")
	requireKind(t, err, apperror.KindNotFound)
	_, err = h.quotes.GetPublicQuote(h.ctx, q.ID, *other.ApprovalToken)
	requireKind(t, err, apperror.KindNotFound)
	_, err = h.quotes.RejectQuote(h.ctx, &RejectQuoteInput{ID: q.ID, Token: "bogus"})
	requireKind(t, err, apperror.KindNotFound)

	pub, err := h.quotes.GetPublicQuote(h.ctx, q.ID, *q.ApprovalToken)
	require.NoError(t, err)
	assert.Equal(t, q.ID, pub.Quote.ID)
	assert.Equal(t, "My Studio", pub.Settings.BusinessName)
}

func TestQuoteOwnershipIsNotFound(t *testing.T) {
	h := newHarness(t)
	q := h.createQuote("0", line("Mixing", "1", "250", true))
	stranger := uuid.New()

	_, err := h.quotes.GetQuote(h.ctx, stranger, q.ID)
	requireKind(t, err, apperror.KindNotFound)
	_, err = h.quotes.AddItem(h.ctx, stranger, q.ID, line("Extra", "1", "1", true))
	requireKind(t, err, apperror.KindNotFound)
	requireKind(t, h.quotes.DeleteQuote(h.ctx, stranger, q.ID), apperror.KindNotFound)

	_, err = h.quotes.CreateQuote(h.ctx, &CreateQuoteInput{UserID: stranger, ClientID: h.client.ID, Title: "Nope"})
	requireKind(t, err, apperror.KindNotFound)
}

func TestQuoteStartPayment(t *testing.T) {
	h := newHarness(t)
	draft := h.createQuote("10", line("Mixing", "1", "100", true))

	_, err := h.quotes.StartPayment(h.ctx, draft.ID, "", payment.ModePaymentIntent)
	requireKind(t, err, apperror.KindNotFound)

	q := h.sendQuote(draft.ID)
	session, err := h.quotes.StartPayment(h.ctx, q.ID, *q.ApprovalToken, payment.ModePaymentIntent)
	require.NoError(t, err)
	assert.Equal(t, "pi_test_1_secret", session.ClientSecret)
	requireMoney(t, "110", session.Amount)

	require.Len(t, h.gateway.Intents, 1)
	md := h.gateway.Intents[0].Metadata
	assert.Equal(t, payment.KindQuote, md.Kind)
	assert.Equal(t, q.ID, md.QuoteID)
	assert.Equal(t, payment.ModePaymentIntent, md.Mode)

	session, err = h.quotes.StartPayment(h.ctx, q.ID, *q.ApprovalToken, payment.ModeCheckout)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/cs_test_1", session.CheckoutURL)
	require.Len(t, h.gateway.Checkouts, 1)
	assert.Contains(t, h.gateway.Checkouts[0].SuccessURL, q.ID.String())
}

func TestApprovedQuoteIsLockedAndConverts(t *testing.T) {
	h := newHarness(t)
	uid := h.user.ID
	keys := h.contractorOf("Kim Keys", "200")

	q := h.createQuote("10", line("Mixing", "1", "100", true), line("Rehearsal", "2", "25", false))
	_, err := h.quotes.AssignContractor(h.ctx, uid, q.ID, AssignmentInput{ContractorID: keys.ID})
	require.NoError(t, err)
	q = h.sendQuote(q.ID)

	_, err = h.deliver(testutil.PaymentEvent("evt_q1", payment.EventPaymentSucceeded, q.AmountDue,
		payment.Metadata{Kind: payment.KindQuote, QuoteID: q.ID}))
	require.NoError(t, err)

	_, err = h.quotes.AddItem(h.ctx, uid, q.ID, line("Extra", "1", "1", true))
	requireKind(t, err, apperror.KindConflict)
	requireKind(t, h.quotes.DeleteQuote(h.ctx, uid, q.ID), apperror.KindConflict)

	inv, err := h.quotes.ConvertToInvoice(h.ctx, &ConvertInput{UserID: uid, ID: q.ID, Actor: "owner@studio.test"})
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, "INV-00001", inv.Number)
	require.NotNil(t, inv.QuoteID)
	assert.Equal(t, q.ID, *inv.QuoteID)
	assert.Len(t, inv.Items, 2)
	assert.Len(t, inv.Contractors, 1)
	requireMoney(t, q.Total.String(), inv.Total)
	requireMoney(t, q.AmountDue.String(), inv.AmountDue)

	_, err = h.quotes.ConvertToInvoice(h.ctx, &ConvertInput{UserID: uid, ID: q.ID})
	requireKind(t, err, apperror.KindConflict)
}

func TestConvertRequiresApproval(t *testing.T) {
	h := newHarness(t)
	q := h.sendQuote(h.createQuote("0", line("Mixing", "1", "100", true)).ID)

	_, err := h.quotes.ConvertToInvoice(h.ctx, &ConvertInput{UserID: h.user.ID, ID: q.ID})
	requireKind(t, err, apperror.KindConflict)
}

func TestEditingLapsedQuoteRecordsExpiry(t *testing.T) {
	h := newHarness(t)
	uid := h.user.ID
	q := h.createQuote("0", line("Mixing", "1", "250", true))
	validUntil := testNow.Add(24 * time.Hour)
	_, err := h.quotes.SendQuote(h.ctx, &SendQuoteInput{UserID: uid, ID: q.ID, ValidUntil: &validUntil})
	require.NoError(t, err)

	h.clock.Advance(48 * time.Hour)
	extended := h.clock.Now().Add(7 * 24 * time.Hour)
	q, err = h.quotes.UpdateQuote(h.ctx, &UpdateQuoteInput{UserID: uid, ID: q.ID, ValidUntil: &extended})
	require.NoError(t, err)
	assert.Equal(t, enum.QuoteStatusExpired, q.Status)
	require.NotNil(t, q.ValidUntil)
	assert.True(t, q.ValidUntil.Equal(extended))
	assert.Equal(t, 1, h.activity(entity.SubjectQuote, q.ID, entity.ActionQuoteExpired))
	assert.Zero(t, h.activity(entity.SubjectQuote, q.ID, entity.ActionQuoteResent))

	q = h.sendQuote(q.ID)
	assert.Equal(t, enum.QuoteStatusSent, q.Status)
	assert.Equal(t, 1, h.activity(entity.SubjectQuote, q.ID, entity.ActionQuoteResent))
}
