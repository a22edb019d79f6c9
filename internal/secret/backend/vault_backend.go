package backend

import (
	"context"
	"fmt"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	apperrors "github.com/sealbox/sealbox/internal/errors"
	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
)

// VaultLogical is the subset of the Vault logical API used by the backend.
// *vaultapi.Logical satisfies it; tests substitute a fake.
type VaultLogical interface {
	ReadWithContext(ctx context.Context, path string) (*vaultapi.Secret, error)
	WriteWithContext(ctx context.Context, path string, data map[string]any) (*vaultapi.Secret, error)
}

// VaultBackend stores secrets in a Vault KV v2 engine under
// "<engine>/data/<deployment-slug>/<logicalKey>". The stored value is a map
// with the fields id, key, value and createdAt, all scalars as strings.
// Absence of a path is a normal not-found, not a transport error.
type VaultBackend struct {
	logical VaultLogical
	engine  string
	slug    string
}

// VaultConfig holds the settings needed to reach the Vault server.
type VaultConfig struct {
	Address        string
	Token          string
	Engine         string
	DeploymentSlug string
}

// NewVaultBackend creates a Vault backend with a real API client.
func NewVaultBackend(cfg VaultConfig) (*VaultBackend, error) {
	apiConfig := vaultapi.DefaultConfig()
	apiConfig.Address = cfg.Address

	client, err := vaultapi.NewClient(apiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return NewVaultBackendWithLogical(client.Logical(), cfg.Engine, cfg.DeploymentSlug), nil
}

// NewVaultBackendWithLogical creates a Vault backend with the provided logical
// client. Used by tests to inject a fake.
func NewVaultBackendWithLogical(logical VaultLogical, engine, slug string) *VaultBackend {
	return &VaultBackend{
		logical: logical,
		engine:  engine,
		slug:    slug,
	}
}

// path builds the KV v2 data path for a logical key.
func (v *VaultBackend) path(logicalKey string) string {
	return fmt.Sprintf("%s/data/%s/%s", v.engine, v.slug, logicalKey)
}

// Get retrieves the secret stored under the given logical key.
func (v *VaultBackend) Get(
	ctx context.Context,
	logicalKey string,
) (*secretDomain.Secret, error) {
	read, err := v.logical.ReadWithContext(ctx, v.path(logicalKey))
	if err != nil {
		return nil, operationFailure(err, "failed to read vault path")
	}
	if read == nil || read.Data == nil {
		return nil, apperrors.ErrNotFound
	}

	data, ok := read.Data["data"].(map[string]any)
	if !ok || len(data) == 0 {
		return nil, apperrors.ErrNotFound
	}

	secret := &secretDomain.Secret{
		ID:         stringField(data, "id"),
		LogicalKey: stringField(data, "key"),
		Value:      stringField(data, "value"),
	}
	if createdAt, err := time.Parse(time.RFC3339Nano, stringField(data, "createdAt")); err == nil {
		secret.CreatedAt = createdAt
	}

	return secret, nil
}

// Put stores a new secret under the given logical key.
func (v *VaultBackend) Put(
	ctx context.Context,
	logicalKey, value, note string,
) (*secretDomain.Secret, error) {
	secret := secretDomain.NewSecret(logicalKey, value, note)

	payload := map[string]any{
		"data": map[string]any{
			"id":        secret.ID,
			"key":       secret.LogicalKey,
			"value":     secret.Value,
			"createdAt": secret.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	if _, err := v.logical.WriteWithContext(ctx, v.path(logicalKey), payload); err != nil {
		return nil, operationFailure(err, "failed to write vault path")
	}

	return secret, nil
}

// stringField reads a scalar string field from a KV payload.
func stringField(data map[string]any, field string) string {
	if value, ok := data[field].(string); ok {
		return value
	}
	return ""
}
