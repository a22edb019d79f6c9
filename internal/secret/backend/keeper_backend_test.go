package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sealbox/sealbox/internal/testutil"
)

// base64key keeper performs local AEAD encryption, no network involved.
const testKeyURI = "base64key://smGbjm71Nxd1Ig5FS0wj9SlbzAIrnolCz9bQQ6uAhl4="

func TestKeeperBackend(t *testing.T) {
	ctx := context.Background()

	keeper, err := OpenKeeper(ctx, testKeyURI)
	require.NoError(t, err)
	defer keeper.Close()

	inner := testutil.NewMemoryBackend()
	b := NewKeeperBackend(inner, keeper)

	t.Run("put stores wrapped value and returns plaintext", func(t *testing.T) {
		secret, err := b.Put(ctx, "encryption", "dmFsdWU=", "bootstrap")
		require.NoError(t, err)
		assert.Equal(t, "dmFsdWU=", secret.Value)

		// The inner backend must never see the plaintext value.
		raw, err := inner.Get(ctx, "encryption")
		require.NoError(t, err)
		assert.NotEqual(t, "dmFsdWU=", raw.Value)
	})

	t.Run("get unwraps the stored value", func(t *testing.T) {
		secret, err := b.Get(ctx, "encryption")
		require.NoError(t, err)
		assert.Equal(t, "dmFsdWU=", secret.Value)
	})

	t.Run("not found passes through", func(t *testing.T) {
		_, err := b.Get(ctx, "missing")
		assert.Error(t, err)
	})
}

func TestOpenKeeper_InvalidURI(t *testing.T) {
	_, err := OpenKeeper(context.Background(), "bogus://nope")
	assert.Error(t, err)
}
