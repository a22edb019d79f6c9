package crypto

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	apperrors "github.com/sealbox/sealbox/internal/errors"
	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
)

// SecretResolver resolves managed secrets for a single slot. Implemented by
// the secret service; envelope operations are stateless over whichever
// resolver is handed to them.
type SecretResolver interface {
	// GetCurrent returns the slot's currently active secret.
	GetCurrent(ctx context.Context) (*secretDomain.Secret, error)

	// GetByID resolves a secret by its opaque ID, including historical
	// secrets that are no longer current.
	GetByID(ctx context.Context, id string) (*secretDomain.Secret, error)
}

// Envelope carries a ciphertext together with the ID of the exact secret that
// produced it. The secret ID is permanently bound to the ciphertext and is the
// sole means of locating the decryption key; decryption never depends on which
// secret is "current", which is what makes rotation safe for old data.
type Envelope struct {
	SecretID   string `json:"secretId"`
	Ciphertext string `json:"ciphertext"`
}

// EnvelopeCipher encrypts and decrypts envelopes. The nonce is prepended to
// the ciphertext before base64 encoding; the secret ID is bound as AAD so an
// envelope cannot be replayed against a different secret.
type EnvelopeCipher struct {
	algorithm secretDomain.Algorithm
}

// NewEnvelopeCipher creates an envelope cipher using the given AEAD algorithm.
func NewEnvelopeCipher(algorithm secretDomain.Algorithm) *EnvelopeCipher {
	return &EnvelopeCipher{algorithm: algorithm}
}

// Encrypt serializes value, encrypts it with the resolver's current secret
// and returns an envelope carrying that secret's ID.
func (e *EnvelopeCipher) Encrypt(
	ctx context.Context,
	resolver SecretResolver,
	value any,
) (*Envelope, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize value: %w", err)
	}

	secret, err := resolver.GetCurrent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current secret: %w", err)
	}

	key, err := secret.Key()
	if err != nil {
		return nil, err
	}

	aead, err := NewAEAD(key, e.algorithm)
	if err != nil {
		return nil, err
	}

	ciphertext, nonce, err := aead.Encrypt(plaintext, []byte(secret.ID))
	if err != nil {
		return nil, err
	}

	return &Envelope{
		SecretID:   secret.ID,
		Ciphertext: base64.StdEncoding.EncodeToString(append(nonce, ciphertext...)),
	}, nil
}

// Decrypt resolves the secret by the envelope's stored ID, decrypts and
// deserializes into out. Resolution goes through GetByID so historical
// secrets keep working after rotation. An envelope whose secret ID cannot be
// resolved is a hard failure; there is no fallback key.
func (e *EnvelopeCipher) Decrypt(
	ctx context.Context,
	resolver SecretResolver,
	envelope *Envelope,
	out any,
) error {
	secret, err := resolver.GetByID(ctx, envelope.SecretID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return secretDomain.ErrDecryptionFailed
		}
		return fmt.Errorf("failed to resolve secret %q: %w", envelope.SecretID, err)
	}

	key, err := secret.Key()
	if err != nil {
		return err
	}

	aead, err := NewAEAD(key, e.algorithm)
	if err != nil {
		return err
	}

	raw, err := base64.StdEncoding.DecodeString(envelope.Ciphertext)
	if err != nil {
		return secretDomain.ErrDecryptionFailed
	}

	nonceSize := nonceSizeFor(e.algorithm)
	if len(raw) < nonceSize {
		return secretDomain.ErrDecryptionFailed
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]

	plaintext, err := aead.Decrypt(ciphertext, nonce, []byte(envelope.SecretID))
	if err != nil {
		return secretDomain.ErrDecryptionFailed
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("failed to deserialize value: %w", err)
	}

	return nil
}

// nonceSizeFor returns the AEAD nonce size. Both supported constructions use
// 12-byte nonces.
func nonceSizeFor(secretDomain.Algorithm) int {
	return 12
}
