package validation

import (
	"fmt"

	dErrors "custodia/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (64 KB).
	// Sufficient for JSON APIs while preventing memory exhaustion attacks.
	MaxBodySize = 64 * 1024
)

// Bounded collection capacities. These mirror the ledger's fixed storage
// bounds and are not runtime-configurable; a full collection fails the
// operation with a capacity_exceeded error.
const (
	// MaxDataTypes is the maximum number of data types per consent.
	MaxDataTypes = 10

	// MaxConsentsPerIndex caps the owner and consumer consent indices.
	// Indices are append-only, so revoked consents still count.
	MaxConsentsPerIndex = 1000

	// MaxAccessLogs caps the per-consent and per-record access logs.
	MaxAccessLogs = 1000

	// MaxSessionsPerAccount caps live sessions per account.
	MaxSessionsPerAccount = 10

	// MaxRequestsPerPatient caps the per-patient access request inbox.
	MaxRequestsPerPatient = 1000

	// MaxKeysPerAccount caps encryption keys per owner, rotated ones
	// included. Unbounded by the reference design; 64 keeps rotation
	// chains finite.
	MaxKeysPerAccount = 64

	// MaxRecordsPerPatient caps uploaded health records per patient.
	MaxRecordsPerPatient = 10000
)

// String length limits
const (
	// MaxNameLength is the maximum length of an identity display name.
	MaxNameLength = 64

	// MaxReasonLength is the maximum length of a verification rejection reason.
	MaxReasonLength = 128

	// MaxTitleLength is the maximum length of a health record title.
	MaxTitleLength = 128

	// MaxIPFSHashLength is the maximum length of a record content hash.
	MaxIPFSHashLength = 64

	// MaxAPIKeyNameLength is the maximum length of an API key label.
	MaxAPIKeyNameLength = 32

	// MaxDeviceNameLength is the maximum length of a session device name.
	MaxDeviceNameLength = 64

	// MaxPurposeLength is the maximum length of a free-form access purpose.
	MaxPurposeLength = 100
)

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckEachStringLength validates that each string in a slice does not exceed the maximum length.
func CheckEachStringLength(fieldName string, values []string, max int) error {
	for _, v := range values {
		if len(v) > max {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
		}
	}
	return nil
}
