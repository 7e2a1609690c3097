package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateClientValidates(t *testing.T) {
	h := newHarness(t)

	_, err := h.clients.CreateClient(h.ctx, &CreateClientInput{UserID: h.user.ID, Name: "  ", Email: "a@b.test"})
	requireKind(t, err, apperror.KindInvalidInput)
	_, err = h.clients.CreateClient(h.ctx, &CreateClientInput{UserID: h.user.ID, Name: "Luna", Email: "not-an-email"})
	requireKind(t, err, apperror.KindInvalidInput)

	c, err := h.clients.CreateClient(h.ctx, &CreateClientInput{UserID: h.user.ID, Name: " Luna ", Email: "luna@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Luna", c.Name)
}

func TestDeleteReferencedClientConflicts(t *testing.T) {
	h := newHarness(t)
	h.createQuote("0", line("Mixing", "1", "100", true))

	requireKind(t, h.clients.DeleteClient(h.ctx, h.user.ID, h.client.ID), apperror.KindConflict)

	spare, err := h.clients.CreateClient(h.ctx, &CreateClientInput{UserID: h.user.ID, Name: "Walk-in", Email: "walkin@example.com"})
	require.NoError(t, err)
	require.NoError(t, h.clients.DeleteClient(h.ctx, h.user.ID, spare.ID))

	_, err = h.clients.GetClient(h.ctx, h.user.ID, spare.ID)
	requireKind(t, err, apperror.KindNotFound)
	requireKind(t, h.clients.DeleteClient(h.ctx, uuid.New(), h.client.ID), apperror.KindNotFound)
}
