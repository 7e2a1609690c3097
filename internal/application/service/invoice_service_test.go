package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendInvoiceDefaultsDueDateFromTerms(t *testing.T) {
	h := newHarness(t)
	inv := h.createInvoice("0", line("Tracking day", "1", "400", true))
	assert.Equal(t, enum.InvoiceStatusDraft, inv.Status)
	assert.Nil(t, inv.PaymentToken)

	res, err := h.invoices.SendInvoice(h.ctx, &SendInvoiceInput{UserID: h.user.ID, ID: inv.ID, Actor: "owner@studio.test"})
	require.NoError(t, err)
	assert.True(t, res.EmailSent)
	sent := res.Invoice
	assert.Equal(t, enum.InvoiceStatusSent, sent.Status)
	require.NotNil(t, sent.DueDate)
	assert.True(t, sent.DueDate.Equal(testNow.AddDate(0, 0, 14)), sent.DueDate.String())
	require.NotNil(t, sent.PaymentToken)
	require.NotNil(t, sent.IssuedAt)

	// a resend keeps the token, the issue date and the existing due date
	h.clock.Advance(2 * 24 * time.Hour)
	again := h.sendInvoice(inv.ID)
	assert.Equal(t, *sent.PaymentToken, *again.PaymentToken)
	assert.True(t, again.IssuedAt.Equal(*sent.IssuedAt))
	assert.True(t, again.DueDate.Equal(*sent.DueDate))
	assert.Equal(t, 2, h.activity(entity.SubjectInvoice, inv.ID, entity.ActionInvoiceSent))

	due := testNow.AddDate(0, 1, 0)
	res, err = h.invoices.SendInvoice(h.ctx, &SendInvoiceInput{UserID: h.user.ID, ID: inv.ID, DueDate: &due})
	require.NoError(t, err)
	assert.True(t, res.Invoice.DueDate.Equal(due))
}

func TestSendCancelledInvoiceConflicts(t *testing.T) {
	h := newHarness(t)
	inv := h.createInvoice("0", line("Tracking day", "1", "400", true))
	_, err := h.invoices.CancelInvoice(h.ctx, h.user.ID, inv.ID, "owner@studio.test", "double booked")
	require.NoError(t, err)

	_, err = h.invoices.SendInvoice(h.ctx, &SendInvoiceInput{UserID: h.user.ID, ID: inv.ID})
	requireKind(t, err, apperror.KindConflict)

	_, err = h.invoices.SendInvoice(h.ctx, &SendInvoiceInput{UserID: h.user.ID, ID: uuid.New()})
	requireKind(t, err, apperror.KindNotFound)
}

func TestInvoiceOverdueOnRead(t *testing.T) {
	h := newHarness(t)
	inv := h.sendInvoice(h.createInvoice("0", line("Tracking day", "1", "400", true)).ID)

	h.clock.Advance(14*24*time.Hour - time.Minute)
	inv, err := h.invoices.GetInvoice(h.ctx, h.user.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusSent, inv.Status)

	h.clock.Advance(time.Hour)
	inv, err = h.invoices.GetInvoice(h.ctx, h.user.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusOverdue, inv.Status)

	inv, err = h.invoices.GetInvoice(h.ctx, h.user.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusOverdue, inv.Status)
	assert.Equal(t, 1, h.activity(entity.SubjectInvoice, inv.ID, entity.ActionInvoiceOverdue))

	// overdue invoices still take payments
	_, err = h.record(inv.ID, "400", nil)
	require.NoError(t, err)
	inv, err = h.invoices.GetInvoice(h.ctx, h.user.ID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusPaid, inv.Status)
}

func TestMarkOverdueSweep(t *testing.T) {
	h := newHarness(t)
	uid := h.user.ID

	late := h.sendInvoice(h.createInvoice("0", line("Tracking day", "1", "400", true)).ID)
	draft := h.createInvoice("0", line("Mixing", "1", "100", true))
	paid := h.sendInvoice(h.createInvoice("0", line("Mastering", "1", "80", true)).ID)
	_, err := h.record(paid.ID, "80", nil)
	require.NoError(t, err)

	h.clock.Advance(15 * 24 * time.Hour)
	fresh := h.sendInvoice(h.createInvoice("0", line("Editing", "1", "60", true)).ID)

	n, err := h.invoices.MarkOverdue(h.ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = h.invoices.MarkOverdue(h.ctx, &uid)
	require.NoError(t, err)
	assert.Zero(t, n)

	for id, want := range map[uuid.UUID]enum.InvoiceStatus{
		late.ID:  enum.InvoiceStatusOverdue,
		draft.ID: enum.InvoiceStatusDraft,
		paid.ID:  enum.InvoiceStatusPaid,
		fresh.ID: enum.InvoiceStatusSent,
	} {
		inv, err := h.repos.Invoices.GetByID(h.ctx, uid, id)
		require.NoError(t, err)
		assert.Equal(t, want, inv.Status, inv.Title)
	}
}

func TestInvoiceTotalsFollowItemEdits(t *testing.T) {
	h := newHarness(t)
	uid := h.user.ID
	inv := h.createInvoice("10",
		line("Tracking day", "2", "300", true),
		line("Tape stock", "1", "50", false),
	)
	requireMoney(t, "650", inv.Subtotal)
	requireMoney(t, "60", inv.TaxAmount)
	requireMoney(t, "710", inv.AmountDue)
	require.Len(t, inv.Items, 2)

	var tracking entity.InvoiceItem
	for _, it := range inv.Items {
		if it.ServiceName == "Tracking day" {
			tracking = it
		}
	}
	inv, err := h.invoices.UpdateItem(h.ctx, uid, inv.ID, tracking.ID, ItemPatch{Quantity: decp("1")})
	require.NoError(t, err)
	requireMoney(t, "350", inv.Subtotal)
	requireMoney(t, "30", inv.TaxAmount)
	requireMoney(t, "380", inv.AmountDue)

	inv, err = h.invoices.AddItem(h.ctx, uid, inv.ID, line("Editing", "2", "25", true))
	require.NoError(t, err)
	requireMoney(t, "400", inv.Subtotal)
	requireMoney(t, "435", inv.AmountDue)

	inv, err = h.invoices.DeleteItem(h.ctx, uid, inv.ID, tracking.ID)
	require.NoError(t, err)
	requireMoney(t, "100", inv.Subtotal)
	requireMoney(t, "105", inv.AmountDue)

	inv, err = h.invoices.UpdateInvoice(h.ctx, &UpdateInvoiceInput{UserID: uid, ID: inv.ID, TaxRate: decp("0")})
	require.NoError(t, err)
	requireMoney(t, "100", inv.AmountDue)
}

func TestLoweringAmountDueSettlesCoveredInvoice(t *testing.T) {
	h := newHarness(t)
	uid := h.user.ID
	inv := h.sendInvoice(h.createInvoice("0", line("Tracking day", "1", "100", true)).ID)
	item := inv.Items[0]

	_, err := h.record(inv.ID, "80", nil)
	require.NoError(t, err)

	inv, err = h.invoices.UpdateItem(h.ctx, uid, inv.ID, item.ID, ItemPatch{UnitPrice: decp("80")})
	require.NoError(t, err)
	requireMoney(t, "80", inv.AmountDue)
	assert.Equal(t, enum.InvoiceStatusPaid, inv.Status)
	require.NotNil(t, inv.PaidDate)
	assert.Equal(t, 1, h.activity(entity.SubjectInvoice, inv.ID, entity.ActionInvoicePaid))

	_, err = h.invoices.AddItem(h.ctx, uid, inv.ID, line("Editing", "1", "20", true))
	requireKind(t, err, apperror.KindConflict)
}

func TestDraftInvoiceEditsDoNotSettle(t *testing.T) {
	h := newHarness(t)
	inv := h.createInvoice("0", line("Tracking day", "1", "100", true))
	_, err := h.record(inv.ID, "100", nil)
	require.NoError(t, err)

	inv, err = h.invoices.UpdateInvoice(h.ctx, &UpdateInvoiceInput{UserID: h.user.ID, ID: inv.ID, TaxRate: decp("0")})
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusDraft, inv.Status)
}
