package service

// Registry tests run against the real in-memory store: uniqueness of
// accounts and DIDs, the verification lifecycle, terminal deactivation, and
// the role predicates other modules gate on.

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"custodia/internal/audit"
	"custodia/internal/identity/models"
	"custodia/internal/identity/store"
	"custodia/internal/platform/clock"
	id "custodia/pkg/domain"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemoryStore
	clock   *clock.Manual
	service *Service
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.New()
	s.clock = clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.service = NewService(
		s.store,
		audit.NewPublisher(audit.NewInMemoryStore()),
		s.clock,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

const (
	alice   = id.AccountID("acct_alice")
	bob     = id.AccountID("acct_bob")
	auditor = id.AccountID("acct_auditor")
)

func (s *ServiceSuite) register(account id.AccountID, did string, role models.Role) *models.Identity {
	s.T().Helper()
	identity, err := s.service.Register(s.ctx, account, did, role, "Display Name", id.Hash32{})
	require.NoError(s.T(), err)
	return identity
}

func (s *ServiceSuite) TestRegister_Validation() {
	s.T().Run("short DID", func(t *testing.T) {
		_, err := s.service.Register(s.ctx, alice, "did:x", models.RolePatient, "Alice", id.Hash32{})
		assert.ErrorIs(t, err, models.ErrInvalidDID)
	})

	s.T().Run("long DID", func(t *testing.T) {
		long := "did:medchain:" + strings.Repeat("a", 100)
		_, err := s.service.Register(s.ctx, alice, long, models.RolePatient, "Alice", id.Hash32{})
		assert.ErrorIs(t, err, models.ErrInvalidDID)
	})

	s.T().Run("empty name", func(t *testing.T) {
		_, err := s.service.Register(s.ctx, alice, "did:medchain:alice", models.RolePatient, "", id.Hash32{})
		assert.ErrorIs(t, err, models.ErrInvalidName)
	})

	s.T().Run("unknown role", func(t *testing.T) {
		_, err := s.service.Register(s.ctx, alice, "did:medchain:alice", "wizard", "Alice", id.Hash32{})
		assert.ErrorIs(t, err, models.ErrInvalidRole)
	})
}

// TestRegister_Uniqueness verifies one identity per account and one account
// per DID.
func (s *ServiceSuite) TestRegister_Uniqueness() {
	s.register(alice, "did:medchain:alice", models.RolePatient)

	s.T().Run("duplicate account", func(t *testing.T) {
		_, err := s.service.Register(s.ctx, alice, "did:medchain:alice2", models.RolePatient, "Alice", id.Hash32{})
		assert.ErrorIs(t, err, models.ErrIdentityAlreadyExists)
	})

	s.T().Run("claimed DID", func(t *testing.T) {
		_, err := s.service.Register(s.ctx, bob, "did:medchain:alice", models.RoleResearcher, "Bob", id.Hash32{})
		assert.ErrorIs(t, err, models.ErrDIDAlreadyExists)
	})
}

func (s *ServiceSuite) TestRegister_StartsUnverified() {
	identity := s.register(alice, "did:medchain:alice", models.RolePatient)
	assert.Equal(s.T(), models.StatusUnverified, identity.VerificationStatus)
	assert.True(s.T(), identity.Active)
}

func (s *ServiceSuite) TestUpdate_PartialFields() {
	s.register(alice, "did:medchain:alice", models.RolePatient)

	name := "New Name"
	updated, err := s.service.Update(s.ctx, alice, &name, nil)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "New Name", updated.Name)
	assert.Equal(s.T(), id.Hash32{}, updated.EmailHash)

	hash := id.Hash32{0xAB}
	updated, err = s.service.Update(s.ctx, alice, nil, &hash)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "New Name", updated.Name)
	assert.Equal(s.T(), hash, updated.EmailHash)
}

// TestVerificationLifecycle walks request → auditor verify, including the
// pending-request and auditor-only guards.
func (s *ServiceSuite) TestVerificationLifecycle() {
	s.register(alice, "did:medchain:alice", models.RolePatient)
	s.register(auditor, "did:medchain:auditor", models.RoleAuditor)

	require.NoError(s.T(), s.service.RequestVerification(s.ctx, alice))

	s.T().Run("double request rejected while pending", func(t *testing.T) {
		err := s.service.RequestVerification(s.ctx, alice)
		assert.ErrorIs(t, err, models.ErrVerificationPending)
	})

	s.T().Run("non-auditor cannot verify", func(t *testing.T) {
		err := s.service.Verify(s.ctx, alice, alice)
		assert.ErrorIs(t, err, models.ErrNotAuthorized)
	})

	s.T().Run("queue visible to auditor only", func(t *testing.T) {
		_, err := s.service.PendingVerifications(s.ctx, alice)
		assert.ErrorIs(t, err, models.ErrNotAuthorized)

		pending, err := s.service.PendingVerifications(s.ctx, auditor)
		require.NoError(t, err)
		assert.Equal(t, []id.AccountID{alice}, pending)
	})

	require.NoError(s.T(), s.service.Verify(s.ctx, auditor, alice))

	verified, err := s.service.IsVerified(s.ctx, alice)
	require.NoError(s.T(), err)
	assert.True(s.T(), verified)

	pending, err := s.service.PendingVerifications(s.ctx, auditor)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), pending)
}

// TestRejectVerification verifies rejection records the decision and the
// identity may request again afterwards.
func (s *ServiceSuite) TestRejectVerification() {
	s.register(alice, "did:medchain:alice", models.RolePatient)
	s.register(auditor, "did:medchain:auditor", models.RoleAuditor)

	require.NoError(s.T(), s.service.RequestVerification(s.ctx, alice))
	require.NoError(s.T(), s.service.RejectVerification(s.ctx, auditor, alice, "documents unreadable"))

	identity, err := s.service.Get(s.ctx, alice)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.StatusRejected, identity.VerificationStatus)

	require.NoError(s.T(), s.service.RequestVerification(s.ctx, alice))
}

// TestDeactivate_Terminal verifies deactivation kills every predicate and
// blocks further edits.
func (s *ServiceSuite) TestDeactivate_Terminal() {
	s.register(alice, "did:medchain:alice", models.RolePatient)
	require.NoError(s.T(), s.service.Deactivate(s.ctx, alice))

	active, err := s.service.IsActiveIdentity(s.ctx, alice)
	require.NoError(s.T(), err)
	assert.False(s.T(), active)

	hasRole, err := s.service.HasRole(s.ctx, alice, models.RolePatient)
	require.NoError(s.T(), err)
	assert.False(s.T(), hasRole)

	name := "Ghost"
	_, err = s.service.Update(s.ctx, alice, &name, nil)
	assert.ErrorIs(s.T(), err, models.ErrIdentityNotActive)

	err = s.service.RequestVerification(s.ctx, alice)
	assert.ErrorIs(s.T(), err, models.ErrIdentityNotActive)
}

// TestPredicates_UnknownAccount verifies predicates report false, not an
// error, for accounts with no identity.
func (s *ServiceSuite) TestPredicates_UnknownAccount() {
	active, err := s.service.IsActiveIdentity(s.ctx, bob)
	require.NoError(s.T(), err)
	assert.False(s.T(), active)

	hasRole, err := s.service.HasRole(s.ctx, bob, models.RolePatient)
	require.NoError(s.T(), err)
	assert.False(s.T(), hasRole)

	err = s.service.RequireRole(s.ctx, bob, models.RolePatient)
	assert.ErrorIs(s.T(), err, models.ErrNotAuthorized)
}

func (s *ServiceSuite) TestGetByDID() {
	s.register(alice, "did:medchain:alice", models.RolePatient)

	identity, err := s.service.GetByDID(s.ctx, "did:medchain:alice")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), alice, identity.Owner)

	_, err = s.service.GetByDID(s.ctx, "did:medchain:nobody")
	assert.ErrorIs(s.T(), err, models.ErrIdentityNotFound)
}
