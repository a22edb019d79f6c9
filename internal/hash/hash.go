// Package hash derives deterministic keyed hashes for searchable fields.
// The key comes from the fixed hash slot: the same input always produces the
// same digest, which is what makes equality lookups over encrypted data
// possible, and exactly why that slot must never rotate.
package hash

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/sealbox/sealbox/internal/crypto"
)

// Hasher computes HMAC-SHA256 digests keyed by the hash slot's secret.
type Hasher struct {
	secrets crypto.SecretResolver
}

// NewHasher creates a hasher over the hash slot's secret service.
func NewHasher(secrets crypto.SecretResolver) *Hasher {
	return &Hasher{secrets: secrets}
}

// Hash returns the hex-encoded HMAC-SHA256 of value.
func (h *Hasher) Hash(ctx context.Context, value string) (string, error) {
	secret, err := h.secrets.GetCurrent(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve hash secret: %w", err)
	}

	key, err := secret.Key()
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Equal reports whether value hashes to digest, in constant time.
func (h *Hasher) Equal(ctx context.Context, value, digest string) (bool, error) {
	computed, err := h.Hash(ctx, value)
	if err != nil {
		return false, err
	}

	computedBytes, err := hex.DecodeString(computed)
	if err != nil {
		return false, err
	}
	digestBytes, err := hex.DecodeString(digest)
	if err != nil {
		return false, nil
	}

	return hmac.Equal(computedBytes, digestBytes), nil
}
