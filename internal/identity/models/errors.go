package models

import dErrors "custodia/pkg/domain-errors"

// Closed error set for the identity registry. Every operation either commits
// fully or returns exactly one of these.
var (
	ErrIdentityAlreadyExists = dErrors.New(dErrors.CodeConflict, "account already has an identity")
	ErrDIDAlreadyExists      = dErrors.New(dErrors.CodeConflict, "DID already registered")
	ErrInvalidDID            = dErrors.New(dErrors.CodeValidation, "DID out of bounds")
	ErrInvalidName           = dErrors.New(dErrors.CodeValidation, "name empty or too long")
	ErrInvalidRole           = dErrors.New(dErrors.CodeValidation, "unknown role")
	ErrIdentityNotFound      = dErrors.New(dErrors.CodeNotFound, "identity not found")
	ErrIdentityNotActive     = dErrors.New(dErrors.CodeInvalidState, "identity deactivated")
	ErrVerificationPending   = dErrors.New(dErrors.CodeInvalidState, "verification already pending")
	ErrNotAuthorized         = dErrors.New(dErrors.CodeUnauthorized, "caller lacks required role")
)
