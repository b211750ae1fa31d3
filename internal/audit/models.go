package audit

import (
	"time"

	"github.com/google/uuid"
)

// Event is emitted from domain logic to capture every authorization
// decision. Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Timestamp time.Time
	Module    string
	Action    Action
	Account   string
	Entity    string
	Detail    string
}

// Module names, one per domain service.
const (
	ModuleIdentity = "identity"
	ModuleConsent  = "consent"
	ModuleAccess   = "access"
	ModuleAuth     = "auth"
	ModuleKeys     = "keys"
	ModuleRecords  = "records"
)

type Action string

const (
	ActionIdentityRegistered    Action = "identity_registered"
	ActionIdentityUpdated       Action = "identity_updated"
	ActionVerificationRequested Action = "verification_requested"
	ActionIdentityVerified      Action = "identity_verified"
	ActionVerificationRejected  Action = "verification_rejected"
	ActionIdentityDeactivated   Action = "identity_deactivated"

	ActionConsentCreated       Action = "consent_created"
	ActionConsentRevoked       Action = "consent_revoked"
	ActionConsentUpdated       Action = "consent_updated"
	ActionConsentAccessed      Action = "consent_accessed"
	ActionConsentExpired       Action = "consent_expired"
	ActionConsentAccessDenied  Action = "consent_access_denied"
	ActionConsentCheckPassed   Action = "consent_check_passed"
	ActionConsentCheckRejected Action = "consent_check_rejected"

	ActionAccessRequested Action = "access_requested"
	ActionAccessGranted   Action = "access_granted"
	ActionAccessDenied    Action = "access_denied"
	ActionAccessRevoked   Action = "access_revoked"

	ActionSessionCreated Action = "session_created"
	ActionSessionRevoked Action = "session_revoked"
	ActionAPIKeyCreated  Action = "api_key_created"
	ActionAPIKeyRevoked  Action = "api_key_revoked"
	ActionAuthFailed     Action = "auth_failed"

	ActionKeyGenerated     Action = "key_generated"
	ActionKeyRotated       Action = "key_rotated"
	ActionKeyRevoked       Action = "key_revoked"
	ActionKeyAccessGranted Action = "key_access_granted"
	ActionKeyAccessRevoked Action = "key_access_revoked"

	ActionRecordUploaded    Action = "record_uploaded"
	ActionRecordUpdated     Action = "record_updated"
	ActionRecordDeactivated Action = "record_deactivated"
	ActionRecordAccessed    Action = "record_accessed"
)
