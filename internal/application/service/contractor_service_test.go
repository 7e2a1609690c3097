package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/enum"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateContractorNormalizesSkills(t *testing.T) {
	h := newHarness(t)

	c, err := h.contractor.CreateContractor(h.ctx, &CreateContractorInput{
		UserID:      h.user.ID,
		Name:        "  Ada Drums ",
		PricingMode: enum.PricingModeFlat,
		FlatRate:    dec("250"),
		Skills:      []string{"drums", " drums", "", "percussion"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Drums", c.Name)
	assert.Equal(t, []string{"drums", "percussion"}, c.Skills)
	assert.True(t, c.Active)

	_, err = h.contractor.CreateContractor(h.ctx, &CreateContractorInput{UserID: h.user.ID, Name: "X", PricingMode: "daily"})
	requireKind(t, err, apperror.KindInvalidInput)

	_, err = h.contractor.CreateContractor(h.ctx, &CreateContractorInput{
		UserID: h.user.ID, Name: "X", PricingMode: enum.PricingModeHourly, HourlyRate: dec("-1"),
	})
	requireKind(t, err, apperror.KindInvalidInput)
}

func TestListContractorsActiveOnly(t *testing.T) {
	h := newHarness(t)

	_, err := h.contractor.CreateContractor(h.ctx, &CreateContractorInput{UserID: h.user.ID, Name: "On", PricingMode: enum.PricingModeFlat})
	require.NoError(t, err)
	_, err = h.contractor.CreateContractor(h.ctx, &CreateContractorInput{UserID: h.user.ID, Name: "Off", PricingMode: enum.PricingModeFlat, Active: flag(false)})
	require.NoError(t, err)

	all, err := h.contractor.ListContractors(h.ctx, h.user.ID, pagination.Params(1, 10), "", false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Pagination.Total)

	active, err := h.contractor.ListContractors(h.ctx, h.user.ID, pagination.Params(1, 10), "", true)
	require.NoError(t, err)
	require.Len(t, active.Items, 1)
	assert.Equal(t, "On", active.Items[0].Name)

	other, err := h.contractor.ListContractors(h.ctx, uuid.New(), pagination.Params(1, 10), "", false)
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}

func TestDeleteAssignedContractorConflicts(t *testing.T) {
	h := newHarness(t)
	keys := h.contractorOf("Kim Keys", "200")

	q := h.createQuote("0", line("Tracking", "1", "100", true))
	_, err := h.quotes.AssignContractor(h.ctx, h.user.ID, q.ID, AssignmentInput{ContractorID: keys.ID})
	require.NoError(t, err)

	requireKind(t, h.contractor.DeleteContractor(h.ctx, h.user.ID, keys.ID), apperror.KindConflict)
	requireKind(t, h.contractor.DeleteContractor(h.ctx, uuid.New(), keys.ID), apperror.KindNotFound)
}
