package testutil

import (
	"fmt"
	"time"

	consentmodels "custodia/internal/consent/models"
	identitymodels "custodia/internal/identity/models"
	id "custodia/pkg/domain"
)

// TestIDs provides convenient pre-generated IDs for tests.
// Use these for deterministic test data.
var TestIDs = struct {
	Patient    id.AccountID
	Researcher id.AccountID
	Auditor    id.AccountID
	ConsentID1 id.ConsentID
	ConsentID2 id.ConsentID
	RecordID1  id.RecordID
}{
	Patient:    id.AccountID("acct_test_patient"),
	Researcher: id.AccountID("acct_test_researcher"),
	Auditor:    id.AccountID("acct_test_auditor"),
	ConsentID1: id.ConsentID{0xc1},
	ConsentID2: id.ConsentID{0xc2},
	RecordID1:  id.RecordID{0xd1},
}

// IdentityBuilder provides a fluent interface for building test identities.
type IdentityBuilder struct {
	identity *identitymodels.Identity
}

// NewIdentityBuilder creates a new IdentityBuilder with sensible defaults:
// an active, verified patient.
func NewIdentityBuilder() *IdentityBuilder {
	registeredAt := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	return &IdentityBuilder{
		identity: &identitymodels.Identity{
			Owner:              TestIDs.Patient,
			DID:                id.DID("did:custodia:test-patient"),
			Role:               identitymodels.RolePatient,
			Name:               "Test Patient",
			EmailHash:          id.Digest([]byte("patient@example.com")),
			VerificationStatus: identitymodels.StatusVerified,
			RegisteredAt:       registeredAt,
			UpdatedAt:          registeredAt,
			Active:             true,
		},
	}
}

func (b *IdentityBuilder) WithOwner(owner id.AccountID) *IdentityBuilder {
	b.identity.Owner = owner
	b.identity.DID = id.DID(fmt.Sprintf("did:custodia:%s", owner))
	return b
}

func (b *IdentityBuilder) WithDID(did id.DID) *IdentityBuilder {
	b.identity.DID = did
	return b
}

func (b *IdentityBuilder) WithRole(role identitymodels.Role) *IdentityBuilder {
	b.identity.Role = role
	return b
}

func (b *IdentityBuilder) WithName(name string) *IdentityBuilder {
	b.identity.Name = name
	return b
}

func (b *IdentityBuilder) WithStatus(status identitymodels.VerificationStatus) *IdentityBuilder {
	b.identity.VerificationStatus = status
	return b
}

func (b *IdentityBuilder) Deactivated() *IdentityBuilder {
	b.identity.Active = false
	return b
}

func (b *IdentityBuilder) Build() *identitymodels.Identity {
	clone := *b.identity
	return &clone
}

// ConsentBuilder provides a fluent interface for building test consents.
type ConsentBuilder struct {
	consent *consentmodels.Consent
}

// NewConsentBuilder creates a new ConsentBuilder with sensible defaults:
// an active research consent for lab results with no expiry.
func NewConsentBuilder() *ConsentBuilder {
	return &ConsentBuilder{
		consent: &consentmodels.Consent{
			ID:           TestIDs.ConsentID1,
			DataOwner:    TestIDs.Patient,
			DataConsumer: TestIDs.Researcher,
			Purpose:      consentmodels.PurposeResearch,
			DataTypes:    []consentmodels.DataType{consentmodels.DataTypeLabResults},
			CreatedAt:    time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
			Status:       consentmodels.StatusActive,
		},
	}
}

func (b *ConsentBuilder) WithID(consentID id.ConsentID) *ConsentBuilder {
	b.consent.ID = consentID
	return b
}

func (b *ConsentBuilder) WithOwner(owner id.AccountID) *ConsentBuilder {
	b.consent.DataOwner = owner
	return b
}

func (b *ConsentBuilder) WithConsumer(consumer id.AccountID) *ConsentBuilder {
	b.consent.DataConsumer = consumer
	return b
}

func (b *ConsentBuilder) WithPurpose(purpose consentmodels.Purpose) *ConsentBuilder {
	b.consent.Purpose = purpose
	return b
}

func (b *ConsentBuilder) WithDataTypes(dataTypes ...consentmodels.DataType) *ConsentBuilder {
	b.consent.DataTypes = dataTypes
	return b
}

func (b *ConsentBuilder) ExpiringAt(expiresAt time.Time) *ConsentBuilder {
	b.consent.ExpiresAt = expiresAt
	return b
}

func (b *ConsentBuilder) Revoked(revokedAt time.Time) *ConsentBuilder {
	b.consent.Status = consentmodels.StatusRevoked
	b.consent.RevokedAt = &revokedAt
	return b
}

func (b *ConsentBuilder) Build() *consentmodels.Consent {
	clone := *b.consent
	clone.DataTypes = append([]consentmodels.DataType(nil), b.consent.DataTypes...)
	return &clone
}
