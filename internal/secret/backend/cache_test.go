package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
)

func TestCache(t *testing.T) {
	cache := NewCache()

	t.Run("miss on empty cache", func(t *testing.T) {
		_, ok := cache.Get("missing")
		assert.False(t, ok)
	})

	t.Run("put then get", func(t *testing.T) {
		secret := secretDomain.NewSecret(secretDomain.SlotEncryption, "dmFsdWU=", "")
		cache.Put(secret)

		got, ok := cache.Get(secret.ID)
		assert.True(t, ok)
		assert.Equal(t, secret, got)
	})

	t.Run("ignores nil and unidentified secrets", func(t *testing.T) {
		cache.Put(nil)
		cache.Put(&secretDomain.Secret{})

		_, ok := cache.Get("")
		assert.False(t, ok)
	})
}
