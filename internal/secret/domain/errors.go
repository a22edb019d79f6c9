package domain

import (
	"github.com/sealbox/sealbox/internal/errors"
)

// Secret management error definitions.
var (
	// ErrUnsupportedAlgorithm indicates the requested key algorithm is not supported.
	// Supported algorithms: AESGCM (AES-256-GCM), ChaCha20 (ChaCha20-Poly1305),
	// HMACSHA256. Key generation never silently defaults the algorithm.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates the requested key size is invalid for the
	// algorithm family (all supported algorithms take 256-bit keys).
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrKeyGenerationFailed indicates random key material could not be produced.
	// Fatal to the operation and surfaced to the caller.
	ErrKeyGenerationFailed = errors.New("key generation failed")

	// ErrDecryptionFailed indicates an envelope could not be decrypted: the
	// referenced secret cannot be resolved, the ciphertext has been tampered
	// with, or the wrong key was used. There is no fallback key; this is a
	// hard failure. The specific cause is not disclosed to prevent leakage.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")
)
