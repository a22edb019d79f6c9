package backend

import (
	"context"
	"errors"
	"testing"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sealbox/sealbox/internal/errors"
)

// fakeLogical is an in-memory stand-in for the Vault logical API.
type fakeLogical struct {
	data    map[string]map[string]any
	readErr error
}

func newFakeLogical() *fakeLogical {
	return &fakeLogical{data: make(map[string]map[string]any)}
}

func (f *fakeLogical) ReadWithContext(
	_ context.Context,
	path string,
) (*vaultapi.Secret, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	payload, ok := f.data[path]
	if !ok {
		// Vault returns a nil secret and nil error for missing paths.
		return nil, nil
	}
	return &vaultapi.Secret{Data: map[string]any{"data": payload}}, nil
}

func (f *fakeLogical) WriteWithContext(
	_ context.Context,
	path string,
	data map[string]any,
) (*vaultapi.Secret, error) {
	f.data[path] = data["data"].(map[string]any)
	return nil, nil
}

func TestVaultBackend(t *testing.T) {
	logical := newFakeLogical()
	b := NewVaultBackendWithLogical(logical, "secret", "acme-prod")

	t.Run("missing path maps to ErrNotFound", func(t *testing.T) {
		_, err := b.Get(context.Background(), "encryption")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("put then get round trip", func(t *testing.T) {
		stored, err := b.Put(context.Background(), "encryption", "dmFsdWU=", "bootstrap")
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ID)

		// Payload must land under the KV v2 data path.
		assert.Contains(t, logical.data, "secret/data/acme-prod/encryption")

		got, err := b.Get(context.Background(), "encryption")
		require.NoError(t, err)
		assert.Equal(t, stored.ID, got.ID)
		assert.Equal(t, "encryption", got.LogicalKey)
		assert.Equal(t, "dmFsdWU=", got.Value)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("put replaces the previous value", func(t *testing.T) {
		first, err := b.Put(context.Background(), "jwt-signing", "Zmlyc3Q=", "")
		require.NoError(t, err)

		second, err := b.Put(context.Background(), "jwt-signing", "c2Vjb25k", "")
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)

		got, err := b.Get(context.Background(), "jwt-signing")
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)
		assert.Equal(t, "c2Vjb25k", got.Value)
	})

	t.Run("transport error maps to ErrUnavailable", func(t *testing.T) {
		logical.readErr = errors.New("connection refused")
		defer func() { logical.readErr = nil }()

		_, err := b.Get(context.Background(), "encryption")
		assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	})
}
