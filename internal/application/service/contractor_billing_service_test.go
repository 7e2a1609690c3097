package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillSeparatelyRequiresIncludedFee(t *testing.T) {
	h := newHarness(t)
	uid := h.user.ID
	inv := h.createInvoice("10", line("Tracking day", "1", "400", true))
	keys := h.contractorOf("Kim Keys", "200")
	drums := h.contractorOf("Dee Drums", "150")
	h.assign(inv.ID, keys, false)
	h.assign(inv.ID, drums, true)

	inv, err := h.invoices.GetInvoice(h.ctx, uid, inv.ID)
	require.NoError(t, err)
	requireMoney(t, "150", inv.ContractorTotal)
	requireMoney(t, "590", inv.AmountDue)

	_, err = h.billing.BillSeparately(h.ctx, uid, inv.ID, keys.ID, "owner@studio.test")
	requireKind(t, err, apperror.KindConflict)

	res, err := h.billing.BillSeparately(h.ctx, uid, inv.ID, drums.ID, "owner@studio.test")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, []uuid.UUID{drums.ID}, res.Processed)
	assert.True(t, res.EmailSent)
	assert.Equal(t, "https://studio.test/contractor-fees/"+res.Token, res.PayURL)

	inv, err = h.invoices.GetInvoice(h.ctx, uid, inv.ID)
	require.NoError(t, err)
	requireMoney(t, "0", inv.ContractorTotal)
	requireMoney(t, "440", inv.AmountDue)

	_, err = h.billing.BillSeparately(h.ctx, uid, inv.ID, drums.ID, "owner@studio.test")
	requireKind(t, err, apperror.KindConflict)
	assert.Equal(t, 1, h.activity(entity.SubjectInvoice, inv.ID, entity.ActionContractorBilledApart))

	_, err = h.invoices.UpdateAssignment(h.ctx, uid, inv.ID, drums.ID, AssignmentPatch{Cost: decp("10")})
	requireKind(t, err, apperror.KindConflict)
	_, err = h.invoices.RemoveContractor(h.ctx, uid, inv.ID, drums.ID)
	requireKind(t, err, apperror.KindConflict)

	_, err = h.billing.BillSeparately(h.ctx, uid, inv.ID, uuid.New(), "owner@studio.test")
	requireKind(t, err, apperror.KindNotFound)
}

func TestBulkBillSkipsIneligible(t *testing.T) {
	h := newHarness(t)
	uid := h.user.ID
	inv := h.createInvoice("0", line("Tracking day", "1", "400", true))
	drums := h.contractorOf("Dee Drums", "150")
	bass := h.contractorOf("Sam Bass", "120")
	keys := h.contractorOf("Kim Keys", "200")
	for _, c := range []*entity.Contractor{drums, bass, keys} {
		h.assign(inv.ID, c, true)
	}

	first, err := h.billing.BillSeparately(h.ctx, uid, inv.ID, drums.ID, "owner@studio.test")
	require.NoError(t, err)

	res, err := h.billing.BulkBillSeparately(h.ctx, uid, inv.ID, []uuid.UUID{drums.ID, bass.ID, keys.ID}, "owner@studio.test")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{bass.ID, keys.ID}, res.Processed)
	assert.Equal(t, []uuid.UUID{drums.ID}, res.Skipped)
	assert.NotEqual(t, first.Token, res.Token)

	members, err := h.repos.Invoices.ListContractorsByFeeToken(h.ctx, res.Token)
	require.NoError(t, err)
	require.Len(t, members, 2)
	for _, m := range members {
		assert.True(t, m.BilledSeparately)
		require.NotNil(t, m.ContractorFeePaymentToken)
		assert.Equal(t, res.Token, *m.ContractorFeePaymentToken)
	}
	assert.Equal(t, 2, h.activity(entity.SubjectInvoice, inv.ID, entity.ActionContractorBilledApart))

	inv, err = h.invoices.GetInvoice(h.ctx, uid, inv.ID)
	require.NoError(t, err)
	requireMoney(t, "400", inv.AmountDue)

	_, err = h.billing.BulkBillSeparately(h.ctx, uid, inv.ID, []uuid.UUID{drums.ID, bass.ID}, "owner@studio.test")
	requireKind(t, err, apperror.KindConflict)
	_, err = h.billing.BulkBillSeparately(h.ctx, uid, inv.ID, nil, "owner@studio.test")
	requireKind(t, err, apperror.KindInvalidInput)
}

func TestFeeBatchPayment(t *testing.T) {
	h := newHarness(t)
	inv := h.createInvoice("0", line("Tracking day", "1", "400", true))
	bass := h.contractorOf("Sam Bass", "120")
	h.assign(inv.ID, bass, true)

	res, err := h.billing.BillSeparately(h.ctx, h.user.ID, inv.ID, bass.ID, "owner@studio.test")
	require.NoError(t, err)

	batch, err := h.billing.GetFeeBatch(h.ctx, res.Token)
	require.NoError(t, err)
	assert.False(t, batch.Paid)
	requireMoney(t, "120", batch.Total)
	assert.Equal(t, inv.Number, batch.Invoice.Number)

	session, err := h.billing.StartPayment(h.ctx, res.Token, payment.ModePaymentIntent)
	require.NoError(t, err)
	requireMoney(t, "120", session.Amount)
	require.Len(t, h.gateway.Intents, 1)
	md := h.gateway.Intents[0].Metadata
	assert.Equal(t, payment.KindContractorFee, md.Kind)
	assert.Equal(t, inv.ID, md.InvoiceID)
	assert.Equal(t, res.Token, md.FeeToken)

	_, err = h.billing.GetFeeBatch(h.ctx, "not-a-token")
	requireKind(t, err, apperror.KindNotFound)
}

func TestBillingFeeApartSettlesCoveredInvoice(t *testing.T) {
	h := newHarness(t)
	uid := h.user.ID
	inv := h.createInvoice("0", line("Tracking day", "1", "100", true))
	drums := h.contractorOf("Dee Drums", "50")
	h.assign(inv.ID, drums, true)
	inv = h.sendInvoice(inv.ID)
	requireMoney(t, "150", inv.AmountDue)

	_, err := h.record(inv.ID, "100", nil)
	require.NoError(t, err)
	inv, err = h.invoices.GetInvoice(h.ctx, uid, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.InvoiceStatusSent, inv.Status)

	_, err = h.billing.BillSeparately(h.ctx, uid, inv.ID, drums.ID, "owner@studio.test")
	require.NoError(t, err)

	inv, err = h.invoices.GetInvoice(h.ctx, uid, inv.ID)
	require.NoError(t, err)
	requireMoney(t, "100", inv.AmountDue)
	assert.Equal(t, enum.InvoiceStatusPaid, inv.Status)
	require.NotNil(t, inv.PaidDate)
	assert.Equal(t, 1, h.activity(entity.SubjectInvoice, inv.ID, entity.ActionInvoicePaid))
}
