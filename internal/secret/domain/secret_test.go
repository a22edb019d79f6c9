package domain

import (
	"encoding/base64"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSecret(t *testing.T) {
	value := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	secret := NewSecret(SlotEncryption, value, "bootstrap")

	parsed, err := uuid.Parse(secret.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Equal(t, SlotEncryption, secret.LogicalKey)
	assert.Equal(t, value, secret.Value)
	assert.Equal(t, "bootstrap", secret.Note)
	assert.False(t, secret.CreatedAt.IsZero())
}

func TestSecret_Key(t *testing.T) {
	t.Run("decodes base64 key material", func(t *testing.T) {
		raw := []byte("0123456789abcdef0123456789abcdef")
		secret := &Secret{Value: base64.StdEncoding.EncodeToString(raw)}

		key, err := secret.Key()
		require.NoError(t, err)
		assert.Equal(t, raw, key)
	})

	t.Run("fails on invalid base64", func(t *testing.T) {
		secret := &Secret{Value: "not base64!!"}
		_, err := secret.Key()
		assert.Error(t, err)
	})
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "encryption-abc", StorageKey(SlotEncryption, "abc"))
	assert.Equal(t, "hash-123", StorageKey(SlotHash, "123"))
}
