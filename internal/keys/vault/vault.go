// Package vault holds real key material for the key manager. The ledger-side
// key records carry metadata only; the 32 material bytes are generated here
// and kept sealed under a process key-encryption key.
package vault

import (
	"crypto/rand"
	"fmt"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
)

// MaterialSize is the size of generated key material in bytes.
const MaterialSize = 32

// Vault seals key material with ChaCha20-Poly1305 under the KEK it was
// constructed with. The key id is bound in as associated data, so a sealed
// blob cannot be replayed under another id.
type Vault struct {
	mu     sync.RWMutex
	sealed map[id.KeyID][]byte
	kek    []byte
}

// New constructs a vault sealing under the given 32-byte KEK.
func New(kek []byte) (*Vault, error) {
	if len(kek) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("kek must be %d bytes", chacha20poly1305.KeySize)
	}
	return &Vault{
		sealed: make(map[id.KeyID][]byte),
		kek:    append([]byte(nil), kek...),
	}, nil
}

// Generate draws fresh material from crypto/rand and stores it sealed under
// the key id. Returns sentinel.ErrAlreadyExists if material is already held.
func (v *Vault) Generate(keyID id.KeyID) error {
	material := make([]byte, MaterialSize)
	if _, err := rand.Read(material); err != nil {
		return fmt.Errorf("draw key material: %w", err)
	}
	return v.Store(keyID, material)
}

// Store seals the given material under the key id.
func (v *Vault) Store(keyID id.KeyID, material []byte) error {
	aead, err := chacha20poly1305.NewX(v.kek)
	if err != nil {
		return fmt.Errorf("init aead: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("draw nonce: %w", err)
	}
	blob := aead.Seal(nonce, nonce, material, keyID[:])

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.sealed[keyID]; ok {
		return sentinel.ErrAlreadyExists
	}
	v.sealed[keyID] = blob
	return nil
}

// Open unseals and returns the material for the key id.
func (v *Vault) Open(keyID id.KeyID) ([]byte, error) {
	v.mu.RLock()
	blob, ok := v.sealed[keyID]
	v.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	aead, err := chacha20poly1305.NewX(v.kek)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}
	if len(blob) < chacha20poly1305.NonceSizeX {
		return nil, fmt.Errorf("sealed blob truncated")
	}
	nonce, ciphertext := blob[:chacha20poly1305.NonceSizeX], blob[chacha20poly1305.NonceSizeX:]
	material, err := aead.Open(nil, nonce, ciphertext, keyID[:])
	if err != nil {
		return nil, fmt.Errorf("unseal key material: %w", err)
	}
	return material, nil
}

// Destroy forgets the sealed material for the key id. Idempotent.
func (v *Vault) Destroy(keyID id.KeyID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.sealed, keyID)
}
