package service

import (
	"crypto/rand"
	"fmt"

	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
)

// GenerateKey produces cryptographically random key material of the requested
// size for the requested algorithm family. Failures (unsupported algorithm,
// invalid size, RNG failure) are reported, never silently defaulted.
func GenerateKey(size int, alg secretDomain.Algorithm) ([]byte, error) {
	switch alg {
	case secretDomain.AESGCM, secretDomain.ChaCha20:
		if size != secretDomain.KeySize {
			return nil, secretDomain.ErrInvalidKeySize
		}
	case secretDomain.HMACSHA256:
		// HMAC-SHA256 accepts a block-sized key as well.
		if size != secretDomain.KeySize && size != 64 {
			return nil, secretDomain.ErrInvalidKeySize
		}
	default:
		return nil, secretDomain.ErrUnsupportedAlgorithm
	}

	key := make([]byte, size)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: %w", secretDomain.ErrKeyGenerationFailed, err)
	}

	return key, nil
}
