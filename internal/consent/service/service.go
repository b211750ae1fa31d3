package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"custodia/internal/audit"
	"custodia/internal/consent/models"
	identity "custodia/internal/identity/models"
	"custodia/internal/platform/clock"
	"custodia/internal/platform/metrics"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	platformsync "custodia/pkg/platform/sync"
	"custodia/pkg/platform/validation"
)

// Store defines the persistence interface for consents.
// Error Contract:
// - Get returns sentinel.ErrNotFound when no consent exists
// - Save returns sentinel.ErrAlreadyExists on ID collision
// - Other methods return nil on success or wrapped errors on failure
type Store interface {
	Save(ctx context.Context, consent *models.Consent) error
	Get(ctx context.Context, consentID id.ConsentID) (*models.Consent, error)
	Update(ctx context.Context, consent *models.Consent) error
	OwnerIndex(ctx context.Context, owner id.AccountID) ([]id.ConsentID, error)
	ConsumerIndex(ctx context.Context, consumer id.AccountID) ([]id.ConsentID, error)
	AppendAccessLog(ctx context.Context, log models.AccessLog) error
	AccessLogs(ctx context.Context, consentID id.ConsentID) ([]models.AccessLog, error)
	NextNonce(ctx context.Context) (uint64, error)
}

// IdentityOracle is the role/identity predicate surface the registry exposes
// to this module. RequireRole fails with an unauthorized domain error when
// the account lacks the role or is inactive.
type IdentityOracle interface {
	RequireRole(ctx context.Context, account id.AccountID, role identity.Role) error
	HasRole(ctx context.Context, account id.AccountID, role identity.Role) (bool, error)
}

type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service enforces the consent lifecycle: creation gated on roles, terminal
// revocation, lazy expiry, and the check predicate other systems gate on.
type Service struct {
	store      Store
	identities IdentityOracle
	auditor    *audit.Publisher
	clock      clock.Clock
	logger     *slog.Logger
	metrics    *metrics.Metrics
	mu         *platformsync.ShardedMutex
}

func NewService(store Store, identities IdentityOracle, auditor *audit.Publisher, clk clock.Clock, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:      store,
		identities: identities,
		auditor:    auditor,
		clock:      clk,
		logger:     logger,
		mu:         platformsync.NewShardedMutex(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create stores a new Active consent from the caller (patient) to the
// consumer. Every precondition, including capacity of BOTH indices, is
// checked before the first write so a failure leaves no partial state.
func (s *Service) Create(ctx context.Context, caller, consumer id.AccountID, purpose models.Purpose, dataTypes []models.DataType, expiresAt time.Time, termsHash id.Hash32) (*models.Consent, error) {
	if err := s.identities.RequireRole(ctx, caller, identity.RolePatient); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, models.ErrInvalidIdentity
		}
		return nil, err
	}
	if err := s.requireConsumerRole(ctx, consumer); err != nil {
		return nil, err
	}
	if !purpose.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown consent purpose")
	}
	if err := validateDataTypes(dataTypes); err != nil {
		return nil, err
	}

	var consent *models.Consent
	err := s.mu.WithLock(caller.String(), func() error {
		now := s.clock.Now()
		if !expiresAt.IsZero() && !expiresAt.After(now) {
			return models.ErrInvalidExpiryTime
		}

		ownerIdx, err := s.store.OwnerIndex(ctx, caller)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read owner index")
		}
		consumerIdx, err := s.store.ConsumerIndex(ctx, consumer)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consumer index")
		}
		if len(ownerIdx) >= validation.MaxConsentsPerIndex || len(consumerIdx) >= validation.MaxConsentsPerIndex {
			return models.ErrMaxConsentsReached
		}

		nonce, err := s.store.NextNonce(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to advance nonce")
		}
		consent = &models.Consent{
			ID:           id.ConsentID(id.DeriveID([]byte(caller), []byte(consumer), id.Nonce(nonce))),
			DataOwner:    caller,
			DataConsumer: consumer,
			Purpose:      purpose,
			DataTypes:    dataTypes,
			CreatedAt:    now,
			ExpiresAt:    expiresAt,
			Status:       models.StatusActive,
			TermsHash:    termsHash,
		}
		if err := s.store.Save(ctx, consent); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save consent")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.ActionConsentCreated, caller, consent.ID.String(), string(purpose))
	if s.metrics != nil {
		s.metrics.IncrementConsentsCreated(string(purpose))
	}
	s.logger.InfoContext(ctx, "consent created",
		"owner", caller, "consumer", consumer, "consent_id", consent.ID, "purpose", purpose)
	return consent, nil
}

// Revoke terminates a consent. Owner-only. Revocation is terminal; an
// already-Expired consent may still be revoked (status overwritten), a
// Revoked one may not.
func (s *Service) Revoke(ctx context.Context, caller id.AccountID, consentID id.ConsentID) error {
	var purpose models.Purpose
	err := s.mu.WithLock(consentID.String(), func() error {
		consent, err := s.load(ctx, consentID)
		if err != nil {
			return err
		}
		if consent.DataOwner != caller {
			return models.ErrNotAuthorized
		}
		if consent.Status == models.StatusRevoked {
			return models.ErrAlreadyRevoked
		}
		now := s.clock.Now()
		consent.Status = models.StatusRevoked
		consent.RevokedAt = &now
		if err := s.store.Update(ctx, consent); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update consent")
		}
		purpose = consent.Purpose
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionConsentRevoked, caller, consentID.String(), string(purpose))
	if s.metrics != nil {
		s.metrics.IncrementConsentsRevoked(string(purpose))
	}
	return nil
}

// Update edits expiry and/or data types. Owner-only, and only while the
// stored status is Active; anything else fails ErrConsentExpired even when
// the true state is Revoked, matching the ledger's overloaded error.
func (s *Service) Update(ctx context.Context, caller id.AccountID, consentID id.ConsentID, newExpiresAt *time.Time, newDataTypes []models.DataType) (*models.Consent, error) {
	if newDataTypes != nil {
		if err := validateDataTypes(newDataTypes); err != nil {
			return nil, err
		}
	}

	var updated *models.Consent
	err := s.mu.WithLock(consentID.String(), func() error {
		consent, err := s.load(ctx, consentID)
		if err != nil {
			return err
		}
		if consent.DataOwner != caller {
			return models.ErrNotAuthorized
		}
		if consent.Status != models.StatusActive {
			return models.ErrConsentExpired
		}
		now := s.clock.Now()
		if newExpiresAt != nil {
			if !newExpiresAt.IsZero() && !newExpiresAt.After(now) {
				return models.ErrInvalidExpiryTime
			}
			consent.ExpiresAt = *newExpiresAt
		}
		if newDataTypes != nil {
			consent.DataTypes = newDataTypes
		}
		if err := s.store.Update(ctx, consent); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update consent")
		}
		updated = consent
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.ActionConsentUpdated, caller, consentID.String(), string(updated.Purpose))
	return updated, nil
}

// LogAccess records a data access under the consent. This is where lazy
// expiry happens: a time-expired Active consent flips to Expired here, the
// event is emitted, and the call still fails ErrConsentExpired.
func (s *Service) LogAccess(ctx context.Context, caller id.AccountID, consentID id.ConsentID, dataHash id.Hash32) error {
	err := s.mu.WithLock(consentID.String(), func() error {
		consent, err := s.load(ctx, consentID)
		if err != nil {
			return err
		}
		now := s.clock.Now()

		if consent.Status != models.StatusActive {
			s.emitAudit(ctx, audit.ActionConsentAccessDenied, caller, consentID.String(), string(consent.Status))
			return models.ErrConsentExpired
		}
		if consent.TimeExpired(now) {
			consent.Status = models.StatusExpired
			if err := s.store.Update(ctx, consent); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to expire consent")
			}
			s.emitAudit(ctx, audit.ActionConsentExpired, caller, consentID.String(), "")
			if s.metrics != nil {
				s.metrics.IncrementConsentsExpired()
			}
			return models.ErrConsentExpired
		}

		logs, err := s.store.AccessLogs(ctx, consentID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read access logs")
		}
		if len(logs) >= validation.MaxAccessLogs {
			return models.ErrMaxAccessLogs
		}

		consent.AccessCount++
		consent.LastAccessed = &now
		if err := s.store.Update(ctx, consent); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update consent")
		}
		if err := s.store.AppendAccessLog(ctx, models.AccessLog{
			ConsentID:  consentID,
			Accessor:   caller,
			AccessedAt: now,
			DataHash:   dataHash,
			Approved:   true,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append access log")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionConsentAccessed, caller, consentID.String(), "")
	if s.metrics != nil {
		s.metrics.IncrementAccessesLogged()
	}
	return nil
}

// Check verifies that the consent authorizes the accessor right now. It
// never mutates: a time-expired consent fails here but keeps StatusActive
// until a LogAccess flips it.
func (s *Service) Check(ctx context.Context, consentID id.ConsentID, accessor id.AccountID) error {
	consent, err := s.load(ctx, consentID)
	if err != nil {
		return err
	}
	now := s.clock.Now()

	if consent.Status != models.StatusActive || consent.TimeExpired(now) {
		s.checkFailed(ctx, consent, accessor, "expired")
		return models.ErrConsentExpired
	}
	if consent.DataConsumer != accessor {
		s.checkFailed(ctx, consent, accessor, "wrong_accessor")
		return models.ErrNotAuthorized
	}

	s.emitAudit(ctx, audit.ActionConsentCheckPassed, accessor, consentID.String(), string(consent.Purpose))
	if s.metrics != nil {
		s.metrics.IncrementConsentCheckPassed(string(consent.Purpose))
	}
	return nil
}

// IsValid is the pure predicate form of Check at an explicit instant. It
// requires no authorization and emits nothing; other modules use it inline.
func (s *Service) IsValid(ctx context.Context, consentID id.ConsentID, accessor id.AccountID, now time.Time) (bool, error) {
	consent, err := s.store.Get(ctx, consentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
	}
	return consent.IsValidFor(accessor, now), nil
}

// Get returns a consent by ID.
func (s *Service) Get(ctx context.Context, consentID id.ConsentID) (*models.Consent, error) {
	return s.load(ctx, consentID)
}

// AccessLogs returns the access trail for a consent. Only the owner or the
// consumer may read it.
func (s *Service) AccessLogs(ctx context.Context, caller id.AccountID, consentID id.ConsentID) ([]models.AccessLog, error) {
	consent, err := s.load(ctx, consentID)
	if err != nil {
		return nil, err
	}
	if consent.DataOwner != caller && consent.DataConsumer != caller {
		return nil, models.ErrNotAuthorized
	}
	logs, err := s.store.AccessLogs(ctx, consentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read access logs")
	}
	return logs, nil
}

// ActiveForOwner lists the owner's currently valid consents. Stale index
// entries (revoked, or past expiry but not yet flipped) are filtered out of
// the view without mutating stored status.
func (s *Service) ActiveForOwner(ctx context.Context, owner id.AccountID) ([]*models.Consent, error) {
	ids, err := s.store.OwnerIndex(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read owner index")
	}
	return s.filterActive(ctx, ids)
}

// ActiveForConsumer mirrors ActiveForOwner for the consuming side.
func (s *Service) ActiveForConsumer(ctx context.Context, consumer id.AccountID) ([]*models.Consent, error) {
	ids, err := s.store.ConsumerIndex(ctx, consumer)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consumer index")
	}
	return s.filterActive(ctx, ids)
}

func (s *Service) filterActive(ctx context.Context, ids []id.ConsentID) ([]*models.Consent, error) {
	now := s.clock.Now()
	var active []*models.Consent
	for _, consentID := range ids {
		consent, err := s.store.Get(ctx, consentID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
		}
		if consent.Status == models.StatusActive && !consent.TimeExpired(now) {
			active = append(active, consent)
		}
	}
	return active, nil
}

func (s *Service) requireConsumerRole(ctx context.Context, consumer id.AccountID) error {
	researcher, err := s.identities.HasRole(ctx, consumer, identity.RoleResearcher)
	if err != nil {
		return err
	}
	if researcher {
		return nil
	}
	institution, err := s.identities.HasRole(ctx, consumer, identity.RoleInstitution)
	if err != nil {
		return err
	}
	if !institution {
		return models.ErrInvalidConsumer
	}
	return nil
}

func validateDataTypes(dataTypes []models.DataType) error {
	if len(dataTypes) == 0 || len(dataTypes) > validation.MaxDataTypes {
		return models.ErrInvalidDataTypes
	}
	for _, dt := range dataTypes {
		if !dt.IsValid() {
			return models.ErrInvalidDataTypes
		}
	}
	return nil
}

// load fetches a consent and translates the store sentinel exactly once.
func (s *Service) load(ctx context.Context, consentID id.ConsentID) (*models.Consent, error) {
	consent, err := s.store.Get(ctx, consentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrConsentNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
	}
	return consent, nil
}

func (s *Service) checkFailed(ctx context.Context, consent *models.Consent, accessor id.AccountID, reason string) {
	s.emitAudit(ctx, audit.ActionConsentCheckRejected, accessor, consent.ID.String(), reason)
	if s.metrics != nil {
		s.metrics.IncrementConsentCheckFailed(string(consent.Purpose))
	}
	s.logger.WarnContext(ctx, "consent check failed",
		"consent_id", consent.ID, "accessor", accessor, "reason", reason)
}

func (s *Service) emitAudit(ctx context.Context, action audit.Action, account id.AccountID, entity, detail string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Module:  audit.ModuleConsent,
		Action:  action,
		Account: account.String(),
		Entity:  entity,
		Detail:  detail,
	})
}
