// Package token signs and verifies session tokens with the signing slot's
// secret. Tokens carry the signing secret's ID in the "kid" header, so tokens
// issued before a rotation keep verifying until their own expiry: verification
// resolves the secret by that ID, never by whichever secret is current.
package token

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sealbox/sealbox/internal/crypto"
	apperrors "github.com/sealbox/sealbox/internal/errors"
)

// Signer issues and verifies HMAC-signed JWTs.
type Signer struct {
	secrets    crypto.SecretResolver
	issuer     string
	expiration time.Duration
}

// NewSigner creates a signer over the signing slot's secret service.
func NewSigner(secrets crypto.SecretResolver, issuer string, expiration time.Duration) *Signer {
	return &Signer{
		secrets:    secrets,
		issuer:     issuer,
		expiration: expiration,
	}
}

// Sign issues a token for the given subject, signed with the current signing
// secret and carrying that secret's ID in the "kid" header.
func (s *Signer) Sign(ctx context.Context, subject string) (string, error) {
	secret, err := s.secrets.GetCurrent(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve signing secret: %w", err)
	}

	key, err := secret.Key()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Issuer:    s.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok.Header["kid"] = secret.ID

	signed, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates the token and returns its claims. The signing secret is
// resolved by the token's "kid" header, so historical secrets verify tokens
// issued before a rotation.
func (s *Signer) Verify(ctx context.Context, tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (any, error) {
		kid, ok := tok.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("token has no key id: %w", apperrors.ErrInvalidInput)
		}

		secret, err := s.secrets.GetByID(ctx, kid)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("unknown signing secret %q: %w", kid, apperrors.ErrInvalidInput)
			}
			return nil, err
		}

		return secret.Key()
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(s.issuer))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("invalid token: %w: %w", apperrors.ErrInvalidInput, err)
	}

	return claims, nil
}
