package models

import dErrors "custodia/pkg/domain-errors"

// Closed error set for authentication.
var (
	ErrSessionNotFound     = dErrors.New(dErrors.CodeNotFound, "session not found")
	ErrAPIKeyNotFound      = dErrors.New(dErrors.CodeNotFound, "api key not found")
	ErrNotAuthorized       = dErrors.New(dErrors.CodeUnauthorized, "caller does not own this credential")
	ErrInvalidIdentity     = dErrors.New(dErrors.CodeUnauthorized, "caller has no active identity")
	ErrInvalidName         = dErrors.New(dErrors.CodeValidation, "credential name empty or too long")
	ErrMaxSessionsReached  = dErrors.New(dErrors.CodeCapacityExceeded, "session limit reached for account")
	ErrAPIKeyAlreadyExists = dErrors.New(dErrors.CodeConflict, "api key hash already registered")
	ErrAPIKeyInactive      = dErrors.New(dErrors.CodeInvalidState, "api key revoked")
	ErrSessionRevoked      = dErrors.New(dErrors.CodeInvalidState, "session already revoked")
)
