// Package seeder populates the in-memory stores with demo identities and API
// keys so local deployments and the e2e suite have accounts to log in with.
// Never enable it against a shared environment.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	authModel "custodia/internal/auth/models"
	identityModel "custodia/internal/identity/models"
	"custodia/internal/platform/clock"
	id "custodia/pkg/domain"
)

// IdentityStore defines the methods needed for seeding identities.
type IdentityStore interface {
	Save(ctx context.Context, identity *identityModel.Identity) error
}

// APIKeyStore defines the methods needed for seeding API keys.
type APIKeyStore interface {
	Save(ctx context.Context, key *authModel.APIKey) error
}

// Seeder populates stores with demo data.
type Seeder struct {
	identities IdentityStore
	apiKeys    APIKeyStore
	clock      clock.Clock
	logger     *slog.Logger
}

// New creates a new seeder.
func New(identities IdentityStore, apiKeys APIKeyStore, clk clock.Clock, logger *slog.Logger) *Seeder {
	return &Seeder{
		identities: identities,
		apiKeys:    apiKeys,
		clock:      clk,
		logger:     logger,
	}
}

// demoAccounts is the fixed roster the e2e suite logs in as. Raw API keys are
// intentionally predictable; they only ever guard demo data.
var demoAccounts = []struct {
	account  id.AccountID
	did      id.DID
	role     identityModel.Role
	name     string
	email    string
	verified bool
	rawKey   string
}{
	{"demo-alice", "did:custodia:alice-patient-001", identityModel.RolePatient, "Alice Anderson", "alice@example.com", true, "demo-api-key-alice"},
	{"demo-bob", "did:custodia:bob-researcher-001", identityModel.RoleResearcher, "Bob Brown", "bob@example.com", true, "demo-api-key-bob"},
	{"demo-charlie", "did:custodia:charlie-institution-001", identityModel.RoleInstitution, "Charlie Chen", "charlie@example.com", true, "demo-api-key-charlie"},
	{"demo-diana", "did:custodia:diana-auditor-001", identityModel.RoleAuditor, "Diana Davis", "diana@example.com", true, "demo-api-key-diana"},
	{"demo-eve", "did:custodia:eve-patient-002", identityModel.RolePatient, "Eve Evans", "eve@example.com", false, ""},
}

// SeedAll stores the demo identities and their API keys.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("seeding demo data")

	now := s.clock.Now()
	for _, d := range demoAccounts {
		status := identityModel.StatusUnverified
		if d.verified {
			status = identityModel.StatusVerified
		}
		identity := &identityModel.Identity{
			Owner:              d.account,
			DID:                d.did,
			Role:               d.role,
			Name:               d.name,
			EmailHash:          id.Digest([]byte(d.email)),
			VerificationStatus: status,
			RegisteredAt:       now,
			UpdatedAt:          now,
			Active:             true,
		}
		if err := s.identities.Save(ctx, identity); err != nil {
			return fmt.Errorf("seed identity %s: %w", d.account, err)
		}

		if d.rawKey == "" {
			continue
		}
		key := &authModel.APIKey{
			Account:   d.account,
			KeyHash:   id.Digest([]byte(d.rawKey)),
			Name:      "seeded",
			CreatedAt: now,
			Active:    true,
		}
		if err := s.apiKeys.Save(ctx, key); err != nil {
			return fmt.Errorf("seed api key for %s: %w", d.account, err)
		}
		s.logger.Info("seeded demo account",
			"account", d.account.String(),
			"role", string(d.role),
			"api_key", d.rawKey,
		)
	}

	s.logger.Info("demo data seeded", "accounts", len(demoAccounts))
	return nil
}
