package service

// Unit tests for the consent service: validation mapping, role gating, and
// error propagation across the store boundary. Lifecycle behavior that needs
// a real store and a movable clock lives in lifecycle_test.go.

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,IdentityOracle

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"custodia/internal/audit"
	"custodia/internal/consent/models"
	"custodia/internal/consent/service/mocks"
	identity "custodia/internal/identity/models"
	"custodia/internal/platform/clock"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	mockStore  *mocks.MockStore
	mockIDs    *mocks.MockIdentityOracle
	clock      *clock.Manual
	service    *Service
	auditStore *audit.InMemoryStore
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.mockIDs = mocks.NewMockIdentityOracle(s.ctrl)
	s.clock = clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.auditStore = audit.NewInMemoryStore()
	auditor := audit.NewPublisher(s.auditStore)
	s.service = NewService(
		s.mockStore,
		s.mockIDs,
		auditor,
		s.clock,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

const (
	patientAcct    = id.AccountID("acct_patient_1")
	researcherAcct = id.AccountID("acct_researcher_1")
)

func (s *ServiceSuite) expectRoles() {
	s.mockIDs.EXPECT().
		RequireRole(gomock.Any(), patientAcct, identity.RolePatient).
		Return(nil)
	s.mockIDs.EXPECT().
		HasRole(gomock.Any(), researcherAcct, identity.RoleResearcher).
		Return(true, nil)
}

// TestCreate_RoleGating verifies that consent creation requires a patient
// owner and a researcher or institution consumer.
func (s *ServiceSuite) TestCreate_RoleGating() {
	dataTypes := []models.DataType{models.DataTypeLabResults}

	s.T().Run("non-patient owner returns ErrInvalidIdentity", func(t *testing.T) {
		s.mockIDs.EXPECT().
			RequireRole(gomock.Any(), patientAcct, identity.RolePatient).
			Return(identity.ErrNotAuthorized)

		_, err := s.service.Create(context.Background(), patientAcct, researcherAcct,
			models.PurposeResearch, dataTypes, time.Time{}, id.Hash32{})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInvalidIdentity)
	})

	s.T().Run("consumer with neither role returns ErrInvalidConsumer", func(t *testing.T) {
		s.mockIDs.EXPECT().
			RequireRole(gomock.Any(), patientAcct, identity.RolePatient).
			Return(nil)
		s.mockIDs.EXPECT().
			HasRole(gomock.Any(), researcherAcct, identity.RoleResearcher).
			Return(false, nil)
		s.mockIDs.EXPECT().
			HasRole(gomock.Any(), researcherAcct, identity.RoleInstitution).
			Return(false, nil)

		_, err := s.service.Create(context.Background(), patientAcct, researcherAcct,
			models.PurposeResearch, dataTypes, time.Time{}, id.Hash32{})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInvalidConsumer)
	})

	s.T().Run("institution consumer is accepted", func(t *testing.T) {
		s.mockIDs.EXPECT().
			RequireRole(gomock.Any(), patientAcct, identity.RolePatient).
			Return(nil)
		s.mockIDs.EXPECT().
			HasRole(gomock.Any(), researcherAcct, identity.RoleResearcher).
			Return(false, nil)
		s.mockIDs.EXPECT().
			HasRole(gomock.Any(), researcherAcct, identity.RoleInstitution).
			Return(true, nil)
		s.mockStore.EXPECT().OwnerIndex(gomock.Any(), patientAcct).Return(nil, nil)
		s.mockStore.EXPECT().ConsumerIndex(gomock.Any(), researcherAcct).Return(nil, nil)
		s.mockStore.EXPECT().NextNonce(gomock.Any()).Return(uint64(1), nil)
		s.mockStore.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)

		consent, err := s.service.Create(context.Background(), patientAcct, researcherAcct,
			models.PurposeResearch, dataTypes, time.Time{}, id.Hash32{})
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, consent.Status)
	})
}

// TestCreate_ValidationErrors verifies input validation before any write.
func (s *ServiceSuite) TestCreate_ValidationErrors() {
	s.T().Run("unknown purpose returns validation error", func(t *testing.T) {
		s.expectRoles()
		_, err := s.service.Create(context.Background(), patientAcct, researcherAcct,
			"divination", []models.DataType{models.DataTypeAll}, time.Time{}, id.Hash32{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.T().Run("empty data types returns ErrInvalidDataTypes", func(t *testing.T) {
		s.expectRoles()
		_, err := s.service.Create(context.Background(), patientAcct, researcherAcct,
			models.PurposeResearch, nil, time.Time{}, id.Hash32{})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInvalidDataTypes)
	})

	s.T().Run("unknown data type returns ErrInvalidDataTypes", func(t *testing.T) {
		s.expectRoles()
		_, err := s.service.Create(context.Background(), patientAcct, researcherAcct,
			models.PurposeResearch, []models.DataType{"tarot"}, time.Time{}, id.Hash32{})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInvalidDataTypes)
	})

	s.T().Run("expiry at the current instant returns ErrInvalidExpiryTime", func(t *testing.T) {
		s.expectRoles()
		_, err := s.service.Create(context.Background(), patientAcct, researcherAcct,
			models.PurposeResearch, []models.DataType{models.DataTypeAll}, s.clock.Now(), id.Hash32{})
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrInvalidExpiryTime)
	})
}

// TestCreate_CapacityPrecheck verifies both indices are checked before the
// first write: a full consumer index fails creation with no Save call.
func (s *ServiceSuite) TestCreate_CapacityPrecheck() {
	full := make([]id.ConsentID, 1000)

	s.expectRoles()
	s.mockStore.EXPECT().OwnerIndex(gomock.Any(), patientAcct).Return(nil, nil)
	s.mockStore.EXPECT().ConsumerIndex(gomock.Any(), researcherAcct).Return(full, nil)

	_, err := s.service.Create(context.Background(), patientAcct, researcherAcct,
		models.PurposeResearch, []models.DataType{models.DataTypeAll}, time.Time{}, id.Hash32{})
	require.Error(s.T(), err)
	assert.ErrorIs(s.T(), err, models.ErrMaxConsentsReached)
}

// TestCreate_StoreErrorPropagation verifies store failures surface as
// CodeInternal without leaking driver details.
func (s *ServiceSuite) TestCreate_StoreErrorPropagation() {
	s.expectRoles()
	s.mockStore.EXPECT().OwnerIndex(gomock.Any(), patientAcct).Return(nil, assert.AnError)

	_, err := s.service.Create(context.Background(), patientAcct, researcherAcct,
		models.PurposeResearch, []models.DataType{models.DataTypeAll}, time.Time{}, id.Hash32{})
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInternal))
}

// TestRevoke_Guards verifies ownership and the terminal-revocation guard.
func (s *ServiceSuite) TestRevoke_Guards() {
	consentID := id.ConsentID(id.DeriveID([]byte(patientAcct), []byte(researcherAcct), id.Nonce(1)))

	s.T().Run("unknown consent returns ErrConsentNotFound", func(t *testing.T) {
		s.mockStore.EXPECT().Get(gomock.Any(), consentID).Return(nil, sentinel.ErrNotFound)

		err := s.service.Revoke(context.Background(), patientAcct, consentID)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrConsentNotFound)
	})

	s.T().Run("non-owner caller returns ErrNotAuthorized", func(t *testing.T) {
		s.mockStore.EXPECT().Get(gomock.Any(), consentID).Return(&models.Consent{
			ID: consentID, DataOwner: patientAcct, Status: models.StatusActive,
		}, nil)

		err := s.service.Revoke(context.Background(), researcherAcct, consentID)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrNotAuthorized)
	})

	s.T().Run("revoking a revoked consent returns ErrAlreadyRevoked", func(t *testing.T) {
		s.mockStore.EXPECT().Get(gomock.Any(), consentID).Return(&models.Consent{
			ID: consentID, DataOwner: patientAcct, Status: models.StatusRevoked,
		}, nil)

		err := s.service.Revoke(context.Background(), patientAcct, consentID)
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrAlreadyRevoked)
	})

	s.T().Run("an expired consent may still be revoked", func(t *testing.T) {
		s.mockStore.EXPECT().Get(gomock.Any(), consentID).Return(&models.Consent{
			ID: consentID, DataOwner: patientAcct, Status: models.StatusExpired,
		}, nil)
		s.mockStore.EXPECT().Update(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, c *models.Consent) error {
				assert.Equal(t, models.StatusRevoked, c.Status)
				require.NotNil(t, c.RevokedAt)
				return nil
			})

		err := s.service.Revoke(context.Background(), patientAcct, consentID)
		assert.NoError(t, err)
	})
}

// TestRevoke_StoreReadFailure verifies a non-sentinel store error surfaces
// as CodeInternal rather than as a lifecycle error.
func (s *ServiceSuite) TestRevoke_StoreReadFailure() {
	consentID := id.ConsentID(id.DeriveID([]byte(patientAcct), []byte(researcherAcct), id.Nonce(5)))
	s.mockStore.EXPECT().Get(gomock.Any(), consentID).Return(nil, assert.AnError)

	err := s.service.Revoke(context.Background(), patientAcct, consentID)
	require.Error(s.T(), err)
	assert.True(s.T(), dErrors.HasCode(err, dErrors.CodeInternal))
	assert.NotErrorIs(s.T(), err, models.ErrConsentNotFound)
}

// TestUpdate_StatusGuard verifies the overloaded expired error: editing a
// revoked consent fails with ErrConsentExpired, not ErrAlreadyRevoked.
func (s *ServiceSuite) TestUpdate_StatusGuard() {
	consentID := id.ConsentID(id.DeriveID([]byte(patientAcct), []byte(researcherAcct), id.Nonce(2)))
	s.mockStore.EXPECT().Get(gomock.Any(), consentID).Return(&models.Consent{
		ID: consentID, DataOwner: patientAcct, Status: models.StatusRevoked,
	}, nil)

	newTypes := []models.DataType{models.DataTypeImaging}
	_, err := s.service.Update(context.Background(), patientAcct, consentID, nil, newTypes)
	require.Error(s.T(), err)
	assert.ErrorIs(s.T(), err, models.ErrConsentExpired)
}

// TestAccessLogs_PartyGuard verifies that only the owner or consumer may
// read a consent's access trail.
func (s *ServiceSuite) TestAccessLogs_PartyGuard() {
	consentID := id.ConsentID(id.DeriveID([]byte(patientAcct), []byte(researcherAcct), id.Nonce(3)))
	s.mockStore.EXPECT().Get(gomock.Any(), consentID).Return(&models.Consent{
		ID: consentID, DataOwner: patientAcct, DataConsumer: researcherAcct,
	}, nil)

	_, err := s.service.AccessLogs(context.Background(), id.AccountID("acct_stranger"), consentID)
	require.Error(s.T(), err)
	assert.ErrorIs(s.T(), err, models.ErrNotAuthorized)
}

// TestIsValid_MissingConsent verifies the pure predicate treats a missing
// consent as invalid rather than an error.
func (s *ServiceSuite) TestIsValid_MissingConsent() {
	consentID := id.ConsentID(id.DeriveID([]byte(patientAcct), []byte(researcherAcct), id.Nonce(4)))
	s.mockStore.EXPECT().Get(gomock.Any(), consentID).Return(nil, sentinel.ErrNotFound)

	valid, err := s.service.IsValid(context.Background(), consentID, researcherAcct, s.clock.Now())
	require.NoError(s.T(), err)
	assert.False(s.T(), valid)
}
