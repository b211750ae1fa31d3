package models

// Role determines which operations an account may originate. Consent grants
// flow from patients to researchers or institutions; auditors adjudicate
// verification requests.
type Role string

const (
	RolePatient     Role = "patient"
	RoleResearcher  Role = "researcher"
	RoleInstitution Role = "institution"
	RoleAuditor     Role = "auditor"
)

// ValidRoles is the single source of truth for registrable roles.
var ValidRoles = map[Role]bool{
	RolePatient:     true,
	RoleResearcher:  true,
	RoleInstitution: true,
	RoleAuditor:     true,
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return ValidRoles[r]
}

// VerificationStatus tracks the auditor review lifecycle of an identity.
// Unverified → Pending (self-service request) → Verified or Rejected
// (auditor decision). A rejected identity may request verification again.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusPending    VerificationStatus = "pending"
	StatusVerified   VerificationStatus = "verified"
	StatusRejected   VerificationStatus = "rejected"
)

// IsValid checks if the status is one of the supported enum values.
func (s VerificationStatus) IsValid() bool {
	switch s {
	case StatusUnverified, StatusPending, StatusVerified, StatusRejected:
		return true
	}
	return false
}
