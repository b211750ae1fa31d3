package domainerrors

import "errors"

// Code represents a domain error category independent of transport layer.
// These codes describe what went wrong in business logic terms, not HTTP terms.
type Code string

const (
	// CodeNotFound covers lookups of entities that do not exist: unknown
	// identities, consents, requests, grants, sessions, or keys.
	CodeNotFound Code = "not_found"

	// CodeUnauthorized covers callers lacking the required role or
	// ownership over the entity they are acting on.
	CodeUnauthorized Code = "unauthorized"

	// CodeInvalidState covers operations rejected because the entity is in
	// the wrong lifecycle state: revoking twice, updating an expired
	// consent, responding to an already-resolved request.
	CodeInvalidState Code = "invalid_state"

	// CodeCapacityExceeded covers bounded collections that are full:
	// per-account session lists, consent indices, access logs, key lists.
	CodeCapacityExceeded Code = "capacity_exceeded"

	// CodeValidation covers malformed input: out-of-range lengths, empty
	// required fields, expiry timestamps not in the future.
	CodeValidation Code = "validation_failed"

	CodeConflict Code = "conflict"
	CodeInternal Code = "internal_error"
	CodeTimeout  Code = "timeout"
)

// Error wraps domain or infrastructure failures with a stable code.
// It is transport-agnostic and can be used across service, store, and other layers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap creates a new domain error wrapping an existing error.
// If the wrapped error is already a domain error, the original code is preserved.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		// Preserve the original domain code, update message
		return &Error{Code: existing.Code, Message: msg, Err: err}
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode checks if an error is a domain error with the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the domain code from an error chain, or CodeInternal
// when the chain carries no domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
