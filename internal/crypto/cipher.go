// Package crypto provides the AEAD ciphers and envelope encryption routines
// used to protect sensitive payloads at rest.
package crypto

import (
	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// NewAEAD creates an AEAD cipher instance for the specified algorithm.
// Returns ErrInvalidKeySize if key is not 32 bytes or ErrUnsupportedAlgorithm
// if the algorithm has no AEAD construction.
func NewAEAD(key []byte, alg secretDomain.Algorithm) (AEAD, error) {
	if len(key) != secretDomain.KeySize {
		return nil, secretDomain.ErrInvalidKeySize
	}

	switch alg {
	case secretDomain.AESGCM:
		return NewAESGCM(key)
	case secretDomain.ChaCha20:
		return NewChaCha20Poly1305(key)
	default:
		return nil, secretDomain.ErrUnsupportedAlgorithm
	}
}
