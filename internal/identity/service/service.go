package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"custodia/internal/audit"
	"custodia/internal/identity/models"
	"custodia/internal/platform/clock"
	"custodia/internal/platform/metrics"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	platformsync "custodia/pkg/platform/sync"
	"custodia/pkg/platform/validation"
)

// Store defines the persistence interface for identities.
// Error Contract:
// - Get/GetByDID return sentinel.ErrNotFound when no identity exists
// - Save returns sentinel.ErrAlreadyExists on account or DID collision
// - Other methods return nil on success or wrapped errors on failure
type Store interface {
	Save(ctx context.Context, identity *models.Identity) error
	Get(ctx context.Context, account id.AccountID) (*models.Identity, error)
	GetByDID(ctx context.Context, did id.DID) (*models.Identity, error)
	Update(ctx context.Context, identity *models.Identity) error
	Enqueue(ctx context.Context, account id.AccountID, at time.Time) error
	Dequeue(ctx context.Context, account id.AccountID) error
	PendingVerifications(ctx context.Context) ([]id.AccountID, error)
}

type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service owns the identity registry: registration, verification, and the
// role predicates every other module consults before authorizing a caller.
type Service struct {
	store   Store
	auditor *audit.Publisher
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	mu      *platformsync.ShardedMutex
}

func NewService(store Store, auditor *audit.Publisher, clk clock.Clock, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		auditor: auditor,
		clock:   clk,
		logger:  logger,
		mu:      platformsync.NewShardedMutex(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Register creates the caller's identity. One identity per account and one
// account per DID; both are validated before the first write.
func (s *Service) Register(ctx context.Context, caller id.AccountID, did string, role models.Role, name string, emailHash id.Hash32) (*models.Identity, error) {
	if len(did) < id.MinDIDLength || len(did) > id.MaxDIDLength {
		return nil, models.ErrInvalidDID
	}
	if name == "" || len(name) > validation.MaxNameLength {
		return nil, models.ErrInvalidName
	}
	if !role.IsValid() {
		return nil, models.ErrInvalidRole
	}

	var identity *models.Identity
	err := s.mu.WithLock(caller.String(), func() error {
		if _, err := s.store.Get(ctx, caller); err == nil {
			return models.ErrIdentityAlreadyExists
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read identity")
		}
		if _, err := s.store.GetByDID(ctx, id.DID(did)); err == nil {
			return models.ErrDIDAlreadyExists
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read DID index")
		}

		now := s.clock.Now()
		identity = &models.Identity{
			Owner:              caller,
			DID:                id.DID(did),
			Role:               role,
			Name:               name,
			EmailHash:          emailHash,
			VerificationStatus: models.StatusUnverified,
			RegisteredAt:       now,
			UpdatedAt:          now,
			Active:             true,
		}
		if err := s.store.Save(ctx, identity); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyExists) {
				return models.ErrIdentityAlreadyExists
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save identity")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.ActionIdentityRegistered, caller, did, string(role))
	if s.metrics != nil {
		s.metrics.IncrementIdentitiesRegistered(string(role))
	}
	s.logger.InfoContext(ctx, "identity registered", "account", caller, "did", did, "role", role)
	return identity, nil
}

// Update edits name and/or email hash. Nil arguments leave the field
// untouched; verification status and role are immutable here.
func (s *Service) Update(ctx context.Context, caller id.AccountID, name *string, emailHash *id.Hash32) (*models.Identity, error) {
	if name != nil && (*name == "" || len(*name) > validation.MaxNameLength) {
		return nil, models.ErrInvalidName
	}

	var updated *models.Identity
	err := s.mu.WithLock(caller.String(), func() error {
		identity, err := s.load(ctx, caller)
		if err != nil {
			return err
		}
		if !identity.Active {
			return models.ErrIdentityNotActive
		}
		if name != nil {
			identity.Name = *name
		}
		if emailHash != nil {
			identity.EmailHash = *emailHash
		}
		identity.UpdatedAt = s.clock.Now()
		if err := s.store.Update(ctx, identity); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update identity")
		}
		updated = identity
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.ActionIdentityUpdated, caller, updated.DID.String(), "")
	return updated, nil
}

// RequestVerification queues the caller's identity for auditor review.
func (s *Service) RequestVerification(ctx context.Context, caller id.AccountID) error {
	err := s.mu.WithLock(caller.String(), func() error {
		identity, err := s.load(ctx, caller)
		if err != nil {
			return err
		}
		if !identity.Active {
			return models.ErrIdentityNotActive
		}
		if identity.VerificationStatus == models.StatusPending {
			return models.ErrVerificationPending
		}
		now := s.clock.Now()
		identity.VerificationStatus = models.StatusPending
		identity.UpdatedAt = now
		if err := s.store.Update(ctx, identity); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update identity")
		}
		if err := s.store.Enqueue(ctx, caller, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to enqueue verification")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionVerificationRequested, caller, "", "")
	if s.metrics != nil {
		s.metrics.AddVerificationQueueSize(1)
	}
	return nil
}

// Verify marks the target identity Verified. Auditor-only.
func (s *Service) Verify(ctx context.Context, caller, target id.AccountID) error {
	if err := s.RequireRole(ctx, caller, models.RoleAuditor); err != nil {
		return err
	}
	err := s.resolveVerification(ctx, target, models.StatusVerified)
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionIdentityVerified, caller, target.String(), "")
	if s.metrics != nil {
		s.metrics.IncrementIdentitiesVerified()
		s.metrics.AddVerificationQueueSize(-1)
	}
	return nil
}

// RejectVerification marks the target identity Rejected with a reason.
// Auditor-only. The target may request verification again later.
func (s *Service) RejectVerification(ctx context.Context, caller, target id.AccountID, reason string) error {
	if len(reason) > validation.MaxReasonLength {
		return dErrors.New(dErrors.CodeValidation, "rejection reason too long")
	}
	if err := s.RequireRole(ctx, caller, models.RoleAuditor); err != nil {
		return err
	}
	if err := s.resolveVerification(ctx, target, models.StatusRejected); err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionVerificationRejected, caller, target.String(), reason)
	if s.metrics != nil {
		s.metrics.IncrementVerificationsRejected()
		s.metrics.AddVerificationQueueSize(-1)
	}
	return nil
}

func (s *Service) resolveVerification(ctx context.Context, target id.AccountID, status models.VerificationStatus) error {
	return s.mu.WithLock(target.String(), func() error {
		identity, err := s.load(ctx, target)
		if err != nil {
			return err
		}
		identity.VerificationStatus = status
		identity.UpdatedAt = s.clock.Now()
		if err := s.store.Update(ctx, identity); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update identity")
		}
		if err := s.store.Dequeue(ctx, target); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to dequeue verification")
		}
		return nil
	})
}

// Deactivate turns the caller's identity off. Terminal: no operation
// reactivates an identity, and every role predicate fails from here on.
func (s *Service) Deactivate(ctx context.Context, caller id.AccountID) error {
	err := s.mu.WithLock(caller.String(), func() error {
		identity, err := s.load(ctx, caller)
		if err != nil {
			return err
		}
		identity.Active = false
		identity.UpdatedAt = s.clock.Now()
		if err := s.store.Update(ctx, identity); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update identity")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionIdentityDeactivated, caller, "", "")
	s.logger.InfoContext(ctx, "identity deactivated", "account", caller)
	return nil
}

// Get returns the identity owned by the account.
func (s *Service) Get(ctx context.Context, account id.AccountID) (*models.Identity, error) {
	return s.load(ctx, account)
}

// GetByDID resolves an identity through the DID index.
func (s *Service) GetByDID(ctx context.Context, did id.DID) (*models.Identity, error) {
	identity, err := s.store.GetByDID(ctx, did)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrIdentityNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read DID index")
	}
	return identity, nil
}

// PendingVerifications lists accounts awaiting review. Auditor-only.
func (s *Service) PendingVerifications(ctx context.Context, caller id.AccountID) ([]id.AccountID, error) {
	if err := s.RequireRole(ctx, caller, models.RoleAuditor); err != nil {
		return nil, err
	}
	accounts, err := s.store.PendingVerifications(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verification queue")
	}
	return accounts, nil
}

// IsActiveIdentity reports whether the account has an active identity.
// Unknown accounts report false without error.
func (s *Service) IsActiveIdentity(ctx context.Context, account id.AccountID) (bool, error) {
	identity, err := s.store.Get(ctx, account)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read identity")
	}
	return identity.IsActive(), nil
}

// HasRole reports whether the account holds the role and is active.
func (s *Service) HasRole(ctx context.Context, account id.AccountID, role models.Role) (bool, error) {
	identity, err := s.store.Get(ctx, account)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read identity")
	}
	return identity.HasRole(role), nil
}

// IsVerified reports whether the account's identity is Verified and active.
func (s *Service) IsVerified(ctx context.Context, account id.AccountID) (bool, error) {
	identity, err := s.store.Get(ctx, account)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read identity")
	}
	return identity.IsVerified(), nil
}

// RequireRole is the centralized capability check other modules consume.
// It fails with ErrNotAuthorized when the account has no identity, is
// deactivated, or holds a different role.
func (s *Service) RequireRole(ctx context.Context, account id.AccountID, role models.Role) error {
	ok, err := s.HasRole(ctx, account, role)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrNotAuthorized
	}
	return nil
}

// load fetches an identity and translates the store sentinel exactly once.
func (s *Service) load(ctx context.Context, account id.AccountID) (*models.Identity, error) {
	identity, err := s.store.Get(ctx, account)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrIdentityNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read identity")
	}
	return identity, nil
}

func (s *Service) emitAudit(ctx context.Context, action audit.Action, account id.AccountID, entity, detail string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Module:  audit.ModuleIdentity,
		Action:  action,
		Account: account.String(),
		Entity:  entity,
		Detail:  detail,
	})
}
