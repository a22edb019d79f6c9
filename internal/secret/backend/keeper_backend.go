package backend

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// OpenKeeper opens a secrets.Keeper for the configured KMS provider using the
// keyURI. Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://,
// base64key://
func OpenKeeper(ctx context.Context, keyURI string) (*secrets.Keeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// KeeperBackend decorates another backend, encrypting stored secret values
// with a KMS keeper before they reach the underlying store and decrypting on
// the way back. This keeps plaintext key material out of the embedded table
// when a KMS is available. Enabled by configuring KMS_KEY_URI.
type KeeperBackend struct {
	inner  Backend
	keeper *secrets.Keeper
}

// NewKeeperBackend wraps the inner backend with KMS encryption.
func NewKeeperBackend(inner Backend, keeper *secrets.Keeper) *KeeperBackend {
	return &KeeperBackend{inner: inner, keeper: keeper}
}

// Get retrieves and decrypts the secret stored under the given logical key.
func (k *KeeperBackend) Get(
	ctx context.Context,
	logicalKey string,
) (*secretDomain.Secret, error) {
	secret, err := k.inner.Get(ctx, logicalKey)
	if err != nil {
		return nil, err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(secret.Value)
	if err != nil {
		return nil, operationFailure(err, "failed to decode wrapped secret value")
	}

	plaintext, err := k.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, operationFailure(err, "failed to unwrap secret value")
	}

	unwrapped := *secret
	unwrapped.Value = string(plaintext)
	return &unwrapped, nil
}

// Put encrypts the value and stores it under the given logical key.
func (k *KeeperBackend) Put(
	ctx context.Context,
	logicalKey, value, note string,
) (*secretDomain.Secret, error) {
	ciphertext, err := k.keeper.Encrypt(ctx, []byte(value))
	if err != nil {
		return nil, operationFailure(err, "failed to wrap secret value")
	}

	secret, err := k.inner.Put(ctx, logicalKey, base64.StdEncoding.EncodeToString(ciphertext), note)
	if err != nil {
		return nil, err
	}

	// Hand the caller the plaintext value so the wrapping stays invisible.
	unwrapped := *secret
	unwrapped.Value = value
	return &unwrapped, nil
}
