package token

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sealbox/sealbox/internal/errors"
	"github.com/sealbox/sealbox/internal/secret/backend"
	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
	"github.com/sealbox/sealbox/internal/secret/service"
	"github.com/sealbox/sealbox/internal/testutil"
)

func newSigningService() *service.Service {
	return service.New(
		secretDomain.SlotSigning,
		false,
		secretDomain.HMACSHA256,
		testutil.NewMemoryBackend(),
		backend.NewCache(),
		slog.Default(),
	)
}

func TestSignerRoundTrip(t *testing.T) {
	ctx := context.Background()
	secrets := newSigningService()
	signer := NewSigner(secrets, "sealbox", time.Hour)

	signed, err := signer.Sign(ctx, "user-42")
	require.NoError(t, err)

	claims, err := signer.Verify(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
	assert.Equal(t, "sealbox", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestSignerBindsSecretID(t *testing.T) {
	ctx := context.Background()
	secrets := newSigningService()
	signer := NewSigner(secrets, "sealbox", time.Hour)

	signed, err := signer.Sign(ctx, "user-42")
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(signed, &jwt.RegisteredClaims{})
	require.NoError(t, err)

	current, err := secrets.GetCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, current.ID, parsed.Header["kid"])
}

func TestSignerSurvivesRotation(t *testing.T) {
	ctx := context.Background()
	secrets := newSigningService()
	signer := NewSigner(secrets, "sealbox", time.Hour)

	signed, err := signer.Sign(ctx, "user-42")
	require.NoError(t, err)

	rotated, err := secrets.Rotate(ctx)
	require.NoError(t, err)

	// The pre-rotation token still verifies via its historical secret.
	claims, err := signer.Verify(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)

	// New tokens bind the post-rotation secret.
	fresh, err := signer.Sign(ctx, "user-42")
	require.NoError(t, err)
	parsed, _, err := jwt.NewParser().ParseUnverified(fresh, &jwt.RegisteredClaims{})
	require.NoError(t, err)
	assert.Equal(t, rotated.ID, parsed.Header["kid"])
}

func TestSignerVerifyFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("expired token", func(t *testing.T) {
		secrets := newSigningService()
		signer := NewSigner(secrets, "sealbox", -time.Minute)

		signed, err := signer.Sign(ctx, "user-42")
		require.NoError(t, err)

		claims, err := signer.Verify(ctx, signed)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		secrets := newSigningService()
		issued, err := NewSigner(secrets, "someone-else", time.Hour).Sign(ctx, "user-42")
		require.NoError(t, err)

		claims, err := NewSigner(secrets, "sealbox", time.Hour).Verify(ctx, issued)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("unknown signing secret", func(t *testing.T) {
		signer := NewSigner(newSigningService(), "sealbox", time.Hour)

		signed, err := signer.Sign(ctx, "user-42")
		require.NoError(t, err)

		// A verifier over a different backend has never seen the secret.
		other := NewSigner(newSigningService(), "sealbox", time.Hour)
		claims, err := other.Verify(ctx, signed)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("tampered token", func(t *testing.T) {
		secrets := newSigningService()
		signer := NewSigner(secrets, "sealbox", time.Hour)

		signed, err := signer.Sign(ctx, "user-42")
		require.NoError(t, err)

		claims, err := signer.Verify(ctx, signed+"x")
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("garbage token", func(t *testing.T) {
		signer := NewSigner(newSigningService(), "sealbox", time.Hour)

		claims, err := signer.Verify(ctx, "not-a-token")
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}
