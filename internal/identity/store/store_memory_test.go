package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/identity/models"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
)

func newIdentity(account id.AccountID, did id.DID) *models.Identity {
	return &models.Identity{
		Owner:              account,
		DID:                did,
		Role:               models.RolePatient,
		Name:               "Test Identity",
		VerificationStatus: models.StatusUnverified,
		RegisteredAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Active:             true,
	}
}

func TestSaveEnforcesUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Save(ctx, newIdentity("acct_a", "did:medchain:a")))

	t.Run("duplicate account", func(t *testing.T) {
		err := s.Save(ctx, newIdentity("acct_a", "did:medchain:other"))
		assert.ErrorIs(t, err, sentinel.ErrAlreadyExists)
	})

	t.Run("duplicate DID", func(t *testing.T) {
		err := s.Save(ctx, newIdentity("acct_b", "did:medchain:a"))
		assert.ErrorIs(t, err, sentinel.ErrAlreadyExists)
	})
}

func TestGetByDID(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Save(ctx, newIdentity("acct_a", "did:medchain:a")))

	got, err := s.GetByDID(ctx, "did:medchain:a")
	require.NoError(t, err)
	assert.Equal(t, id.AccountID("acct_a"), got.Owner)

	_, err = s.GetByDID(ctx, "did:medchain:missing")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Save(ctx, newIdentity("acct_a", "did:medchain:a")))

	got, err := s.Get(ctx, "acct_a")
	require.NoError(t, err)
	got.Active = false

	again, err := s.Get(ctx, "acct_a")
	require.NoError(t, err)
	assert.True(t, again.Active)
}

func TestVerificationQueue(t *testing.T) {
	ctx := context.Background()
	s := New()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Enqueue(ctx, "acct_a", at))
	require.NoError(t, s.Enqueue(ctx, "acct_a", at.Add(time.Hour))) // idempotent

	pending, err := s.PendingVerifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, []id.AccountID{"acct_a"}, pending)

	require.NoError(t, s.Dequeue(ctx, "acct_a"))
	pending, err = s.PendingVerifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
