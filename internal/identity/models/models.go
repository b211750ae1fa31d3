package models

import (
	"time"

	id "custodia/pkg/domain"
)

// Identity is the on-ledger record tying an account to a DID and a role.
// One identity per account, one account per DID; the store enforces both.
type Identity struct {
	Owner              id.AccountID
	DID                id.DID
	Role               Role
	Name               string
	EmailHash          id.Hash32
	VerificationStatus VerificationStatus
	RegisteredAt       time.Time
	UpdatedAt          time.Time
	Active             bool
}

// IsActive reports whether the identity can act. Deactivation is terminal:
// no operation flips Active back to true.
func (i Identity) IsActive() bool {
	return i.Active
}

// HasRole reports whether the identity holds the role AND is active. An
// inactive identity holds no effective role.
func (i Identity) HasRole(role Role) bool {
	return i.Active && i.Role == role
}

// IsVerified reports whether the identity passed auditor verification and is
// still active.
func (i Identity) IsVerified() bool {
	return i.Active && i.VerificationStatus == StatusVerified
}
