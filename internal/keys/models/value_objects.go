package models

// Algorithm names the AEAD cipher a key's material is meant for.
type Algorithm string

const (
	AlgorithmChaCha20Poly1305 Algorithm = "chacha20poly1305"
	AlgorithmAES256GCM        Algorithm = "aes256gcm"
)

// IsValid checks if the algorithm is one of the supported enum values.
func (a Algorithm) IsValid() bool {
	switch a {
	case AlgorithmChaCha20Poly1305, AlgorithmAES256GCM:
		return true
	}
	return false
}

// Purpose classifies what a key protects.
type Purpose string

const (
	PurposeRecordEncryption Purpose = "record_encryption"
	PurposeDataEncryption   Purpose = "data_encryption"
	PurposeKeyEncryption    Purpose = "key_encryption"
)

// IsValid checks if the purpose is one of the supported enum values.
func (p Purpose) IsValid() bool {
	switch p {
	case PurposeRecordEncryption, PurposeDataEncryption, PurposeKeyEncryption:
		return true
	}
	return false
}
