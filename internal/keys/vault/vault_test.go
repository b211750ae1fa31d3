package vault

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
)

func newVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(bytes.Repeat([]byte{0x07}, 32))
	require.NoError(t, err)
	return v
}

func TestNewRejectsShortKEK(t *testing.T) {
	_, err := New([]byte("too short"))
	assert.Error(t, err)
}

func TestGenerateOpenRoundTrip(t *testing.T) {
	v := newVault(t)
	keyID := id.KeyID{0x01}

	require.NoError(t, v.Generate(keyID))

	material, err := v.Open(keyID)
	require.NoError(t, err)
	assert.Len(t, material, MaterialSize)

	again, err := v.Open(keyID)
	require.NoError(t, err)
	assert.Equal(t, material, again)
}

func TestGenerateRejectsDuplicate(t *testing.T) {
	v := newVault(t)
	keyID := id.KeyID{0x01}
	require.NoError(t, v.Generate(keyID))
	assert.ErrorIs(t, v.Generate(keyID), sentinel.ErrAlreadyExists)
}

func TestOpenUnknownKey(t *testing.T) {
	v := newVault(t)
	_, err := v.Open(id.KeyID{0xFF})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestDestroyForgetsMaterial(t *testing.T) {
	v := newVault(t)
	keyID := id.KeyID{0x01}
	require.NoError(t, v.Generate(keyID))

	v.Destroy(keyID)
	_, err := v.Open(keyID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	v.Destroy(keyID) // idempotent
}

// Sealing binds the key id as associated data: material stored under one id
// cannot be surfaced under another even if blobs were swapped.
func TestMaterialIsDistinctPerKey(t *testing.T) {
	v := newVault(t)
	a, b := id.KeyID{0x0A}, id.KeyID{0x0B}
	require.NoError(t, v.Generate(a))
	require.NoError(t, v.Generate(b))

	ma, err := v.Open(a)
	require.NoError(t, err)
	mb, err := v.Open(b)
	require.NoError(t, err)
	assert.NotEqual(t, ma, mb)
}
