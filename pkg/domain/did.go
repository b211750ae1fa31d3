package domain

import dErrors "custodia/pkg/domain-errors"

// DID bounds. A decentralized identifier must be long enough to carry a
// method prefix and unique suffix, and short enough to index.
const (
	MinDIDLength = 10
	MaxDIDLength = 100
)

// DID is a decentralized identifier string, e.g. "did:medchain:abc123".
// Uniqueness across the registry is enforced by the identity store.
type DID string

// ParseDID validates length bounds at the trust boundary. The registry does
// not parse DID method syntax; the identifier is opaque beyond its bounds.
func ParseDID(s string) (DID, error) {
	if len(s) < MinDIDLength {
		return "", dErrors.New(dErrors.CodeValidation, "DID shorter than 10 bytes")
	}
	if len(s) > MaxDIDLength {
		return "", dErrors.New(dErrors.CodeValidation, "DID exceeds 100 bytes")
	}
	return DID(s), nil
}

func (d DID) String() string { return string(d) }

func (d DID) IsZero() bool { return d == "" }
