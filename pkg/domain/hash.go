package domain

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// DeriveID computes a 32-byte identifier from the given parts in order.
// Modules derive their entity IDs from the acting accounts followed by a
// monotonic nonce, e.g. blake2b(owner || consumer || nonce) for consents.
func DeriveID(parts ...[]byte) EntityID {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		h.Write(p)
	}
	var id EntityID
	copy(id[:], h.Sum(nil))
	return id
}

// Nonce encodes a sequence counter as 8 big-endian bytes for ID derivation.
func Nonce(n uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	return buf[:]
}

// Digest hashes arbitrary bytes into a Hash32. Used where the service needs
// a digest of caller-supplied material, such as API key secrets.
func Digest(data []byte) Hash32 {
	return Hash32(blake2b.Sum256(data))
}
