package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "custodia/pkg/domain-errors"
)

// TestParseEntityID_Invariants validates the parsing invariant:
// "entity IDs must be 64 hex characters decoding to 32 bytes"
//
// Justification: This is a pure function enforcing a domain invariant
// at trust boundaries. Per testing.md, unit tests are allowed for invariants.
func TestParseEntityID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseConsentID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects non-hex input", func(t *testing.T) {
		_, err := ParseConsentID(strings.Repeat("zz", 32))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseConsentID("deadbeef")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("round-trips through String", func(t *testing.T) {
		want := ConsentID(DeriveID([]byte("owner"), []byte("consumer"), Nonce(1)))
		got, err := ParseConsentID(want.String())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	consentID := ConsentID(DeriveID([]byte("a"), Nonce(0)))
	requestID := RequestID(DeriveID([]byte("b"), Nonce(0)))

	// These would fail to compile if types were interchangeable:
	// var _ ConsentID = requestID   // compile error
	// var _ RequestID = consentID   // compile error

	// Verify they're distinct at runtime too
	assert.NotEqual(t, EntityID(consentID), EntityID(requestID))
}

// TestDeriveID_Determinism validates that ID derivation is a pure function
// of its inputs and their order.
func TestDeriveID_Determinism(t *testing.T) {
	t.Run("same inputs produce same ID", func(t *testing.T) {
		a := DeriveID([]byte("alice"), []byte("bob"), Nonce(7))
		b := DeriveID([]byte("alice"), []byte("bob"), Nonce(7))
		assert.Equal(t, a, b)
	})

	t.Run("nonce changes the ID", func(t *testing.T) {
		a := DeriveID([]byte("alice"), []byte("bob"), Nonce(7))
		b := DeriveID([]byte("alice"), []byte("bob"), Nonce(8))
		assert.NotEqual(t, a, b)
	})

	t.Run("input order matters", func(t *testing.T) {
		a := DeriveID([]byte("alice"), []byte("bob"), Nonce(7))
		b := DeriveID([]byte("bob"), []byte("alice"), Nonce(7))
		assert.NotEqual(t, a, b)
	})

	t.Run("nonce encodes big-endian", func(t *testing.T) {
		assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 1}, Nonce(1))
	})
}

// TestParseDID_Bounds validates DID length bounds at the trust boundary.
func TestParseDID_Bounds(t *testing.T) {
	t.Run("rejects DIDs shorter than 10 bytes", func(t *testing.T) {
		_, err := ParseDID("did:x:1")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects DIDs longer than 100 bytes", func(t *testing.T) {
		_, err := ParseDID("did:medchain:" + strings.Repeat("a", 100))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accepts bounds inclusively", func(t *testing.T) {
		min, err := ParseDID(strings.Repeat("d", 10))
		require.NoError(t, err)
		assert.Len(t, min.String(), 10)

		max, err := ParseDID(strings.Repeat("d", 100))
		require.NoError(t, err)
		assert.Len(t, max.String(), 100)
	})
}
