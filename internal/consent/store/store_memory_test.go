package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"custodia/internal/consent/models"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newConsent(nonce uint64) *models.Consent {
	return &models.Consent{
		ID:           id.ConsentID(id.DeriveID([]byte("acct_owner"), []byte("acct_consumer"), id.Nonce(nonce))),
		DataOwner:    "acct_owner",
		DataConsumer: "acct_consumer",
		Purpose:      models.PurposeResearch,
		DataTypes:    []models.DataType{models.DataTypeLabResults},
		CreatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Status:       models.StatusActive,
	}
}

func (s *MemoryStoreSuite) TestSaveAndGet() {
	consent := s.newConsent(1)
	require.NoError(s.T(), s.store.Save(s.ctx, consent))

	got, err := s.store.Get(s.ctx, consent.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), consent.ID, got.ID)
	assert.Equal(s.T(), consent.DataTypes, got.DataTypes)
}

func (s *MemoryStoreSuite) TestSaveDuplicateID() {
	consent := s.newConsent(1)
	require.NoError(s.T(), s.store.Save(s.ctx, consent))

	err := s.store.Save(s.ctx, s.newConsent(1))
	assert.ErrorIs(s.T(), err, sentinel.ErrAlreadyExists)
}

func (s *MemoryStoreSuite) TestGetNotFound() {
	_, err := s.store.Get(s.ctx, id.ConsentID{0xFF})
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestUpdateNotFound() {
	err := s.store.Update(s.ctx, s.newConsent(1))
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

// TestGetReturnsCopy verifies reads hand out copies: mutating the returned
// consent must not touch stored state.
func (s *MemoryStoreSuite) TestGetReturnsCopy() {
	consent := s.newConsent(1)
	require.NoError(s.T(), s.store.Save(s.ctx, consent))

	got, err := s.store.Get(s.ctx, consent.ID)
	require.NoError(s.T(), err)
	got.Status = models.StatusRevoked
	got.DataTypes[0] = models.DataTypeGenomic

	again, err := s.store.Get(s.ctx, consent.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusActive, again.Status)
	assert.Equal(s.T(), models.DataTypeLabResults, again.DataTypes[0])
}

// TestIndicesAreAppendOnly verifies Save grows both indices and Update
// never shrinks them.
func (s *MemoryStoreSuite) TestIndicesAreAppendOnly() {
	first := s.newConsent(1)
	second := s.newConsent(2)
	require.NoError(s.T(), s.store.Save(s.ctx, first))
	require.NoError(s.T(), s.store.Save(s.ctx, second))

	first.Status = models.StatusRevoked
	require.NoError(s.T(), s.store.Update(s.ctx, first))

	ownerIdx, err := s.store.OwnerIndex(s.ctx, "acct_owner")
	require.NoError(s.T(), err)
	assert.Len(s.T(), ownerIdx, 2)

	consumerIdx, err := s.store.ConsumerIndex(s.ctx, "acct_consumer")
	require.NoError(s.T(), err)
	assert.Len(s.T(), consumerIdx, 2)
}

func (s *MemoryStoreSuite) TestAccessLogs() {
	consent := s.newConsent(1)
	require.NoError(s.T(), s.store.Save(s.ctx, consent))

	log := models.AccessLog{
		ConsentID:  consent.ID,
		Accessor:   "acct_consumer",
		AccessedAt: time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC),
		Approved:   true,
	}
	require.NoError(s.T(), s.store.AppendAccessLog(s.ctx, log))

	logs, err := s.store.AccessLogs(s.ctx, consent.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), logs, 1)
	assert.Equal(s.T(), log.Accessor, logs[0].Accessor)
}

func (s *MemoryStoreSuite) TestAppendAccessLogUnknownConsent() {
	err := s.store.AppendAccessLog(s.ctx, models.AccessLog{ConsentID: id.ConsentID{0xAA}})
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestNextNonceMonotonic() {
	first, err := s.store.NextNonce(s.ctx)
	require.NoError(s.T(), err)
	second, err := s.store.NextNonce(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), first+1, second)
}
