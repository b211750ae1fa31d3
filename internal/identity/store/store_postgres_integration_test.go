//go:build integration

package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	identitymodels "custodia/internal/identity/models"
	"custodia/internal/identity/store"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
	"custodia/pkg/testutil"
	"custodia/pkg/testutil/containers"
)

type IdentityPostgresSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.PostgresStore
}

func TestIdentityPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(IdentityPostgresSuite))
}

func (s *IdentityPostgresSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.pg.DB)
}

func (s *IdentityPostgresSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateModuleTables(context.Background()))
}

func (s *IdentityPostgresSuite) TestSaveAndGetRoundTrip() {
	ctx := context.Background()
	identity := testutil.NewIdentityBuilder().Build()

	s.Require().NoError(s.store.Save(ctx, identity))

	got, err := s.store.Get(ctx, identity.Owner)
	s.Require().NoError(err)
	s.Equal(identity.Owner, got.Owner)
	s.Equal(identity.DID, got.DID)
	s.Equal(identity.Role, got.Role)
	s.Equal(identity.EmailHash, got.EmailHash)
	s.Equal(identity.VerificationStatus, got.VerificationStatus)
	s.True(got.Active)

	byDID, err := s.store.GetByDID(ctx, identity.DID)
	s.Require().NoError(err)
	s.Equal(identity.Owner, byDID.Owner)
}

func (s *IdentityPostgresSuite) TestGetMissingReturnsNotFound() {
	_, err := s.store.Get(context.Background(), "acct_nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *IdentityPostgresSuite) TestDuplicateDIDConflicts() {
	ctx := context.Background()
	first := testutil.NewIdentityBuilder().WithOwner("acct_one").WithDID("did:custodia:shared").Build()
	second := testutil.NewIdentityBuilder().WithOwner("acct_two").WithDID("did:custodia:shared").Build()

	s.Require().NoError(s.store.Save(ctx, first))
	s.ErrorIs(s.store.Save(ctx, second), sentinel.ErrAlreadyExists)
}

func (s *IdentityPostgresSuite) TestUpdatePersistsChanges() {
	ctx := context.Background()
	identity := testutil.NewIdentityBuilder().WithStatus(identitymodels.StatusUnverified).Build()
	s.Require().NoError(s.store.Save(ctx, identity))

	identity.Name = "Renamed Patient"
	identity.VerificationStatus = identitymodels.StatusVerified
	identity.UpdatedAt = identity.UpdatedAt.Add(time.Hour)
	s.Require().NoError(s.store.Update(ctx, identity))

	got, err := s.store.Get(ctx, identity.Owner)
	s.Require().NoError(err)
	s.Equal("Renamed Patient", got.Name)
	s.Equal(identitymodels.StatusVerified, got.VerificationStatus)
}

func (s *IdentityPostgresSuite) TestUpdateMissingReturnsNotFound() {
	identity := testutil.NewIdentityBuilder().WithOwner("acct_ghost").Build()
	s.ErrorIs(s.store.Update(context.Background(), identity), sentinel.ErrNotFound)
}

func (s *IdentityPostgresSuite) TestVerificationQueueOrdering() {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, account := range []id.AccountID{"acct_c", "acct_a", "acct_b"} {
		identity := testutil.NewIdentityBuilder().
			WithOwner(account).
			WithStatus(identitymodels.StatusPending).
			Build()
		s.Require().NoError(s.store.Save(ctx, identity))
		s.Require().NoError(s.store.Enqueue(ctx, account, base.Add(time.Duration(i)*time.Minute)))
	}

	pending, err := s.store.PendingVerifications(ctx)
	s.Require().NoError(err)
	s.Equal([]id.AccountID{"acct_c", "acct_a", "acct_b"}, pending)

	// Re-requesting moves the account to the back of the queue.
	s.Require().NoError(s.store.Enqueue(ctx, "acct_c", base.Add(time.Hour)))
	pending, err = s.store.PendingVerifications(ctx)
	s.Require().NoError(err)
	s.Equal([]id.AccountID{"acct_a", "acct_b", "acct_c"}, pending)

	s.Require().NoError(s.store.Dequeue(ctx, "acct_a"))
	pending, err = s.store.PendingVerifications(ctx)
	s.Require().NoError(err)
	s.Equal([]id.AccountID{"acct_b", "acct_c"}, pending)
}

func (s *IdentityPostgresSuite) TestConcurrentSaveSameDIDAdmitsOne() {
	ctx := context.Background()

	result := testutil.RunConcurrent(8, func(idx int) error {
		identity := testutil.NewIdentityBuilder().
			WithOwner(id.AccountID(fmt.Sprintf("acct_racer_%d", idx))).
			WithDID("did:custodia:contested").
			Build()
		return s.store.Save(ctx, identity)
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(7), result.Conflicts)
}
