package models

import dErrors "custodia/pkg/domain-errors"

// Closed error set for the consent manager.
//
// ErrConsentExpired is deliberately overloaded, matching the ledger's
// contract: it covers true time expiry AND any "not editable / not Active"
// state, including consents that are in fact Revoked.
var (
	ErrConsentNotFound    = dErrors.New(dErrors.CodeNotFound, "consent not found")
	ErrInvalidIdentity    = dErrors.New(dErrors.CodeUnauthorized, "owner lacks patient role")
	ErrInvalidConsumer    = dErrors.New(dErrors.CodeUnauthorized, "consumer lacks researcher or institution role")
	ErrNotAuthorized      = dErrors.New(dErrors.CodeUnauthorized, "caller is not party to this consent")
	ErrInvalidDataTypes   = dErrors.New(dErrors.CodeValidation, "data types empty, too many, or unknown")
	ErrInvalidExpiryTime  = dErrors.New(dErrors.CodeValidation, "expiry must be in the future")
	ErrMaxConsentsReached = dErrors.New(dErrors.CodeCapacityExceeded, "consent index full")
	ErrAlreadyRevoked     = dErrors.New(dErrors.CodeInvalidState, "consent already revoked")
	ErrConsentExpired     = dErrors.New(dErrors.CodeInvalidState, "consent expired or not active")
	ErrMaxAccessLogs      = dErrors.New(dErrors.CodeCapacityExceeded, "access log full")
)
