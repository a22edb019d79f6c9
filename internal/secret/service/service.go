// Package service implements the per-slot secret lifecycle: lazy bootstrap on
// first access, resolution of current and historical secrets, and rotation.
//
// Each slot is served by its own Service instance over a shared Backend. The
// slot's indirection record (stored under the bare logical key) holds the ID
// of the currently active secret; the secret itself is stored under a derived
// storage key that embeds that ID. The storage key is the authoritative
// carrier of a secret's identity, so historical secrets stay addressable by ID
// long after the indirection record has moved on.
package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	apperrors "github.com/sealbox/sealbox/internal/errors"
	"github.com/sealbox/sealbox/internal/secret/backend"
	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
)

// Service manages the lifecycle of a single secret slot.
//
// The current secret is held in an atomic pointer after first resolution, so
// steady-state reads never touch the backend. Rotation swaps the pointer after
// the new secret and indirection record have both been persisted.
type Service struct {
	slot      string
	fixed     bool
	algorithm secretDomain.Algorithm
	backend   backend.Backend
	cache     *backend.Cache
	logger    *slog.Logger
	current   atomic.Pointer[secretDomain.Secret]
}

// New creates a service for the given slot. A fixed slot never rotates:
// Rotate is a no-op that returns the current secret unchanged.
func New(
	slot string,
	fixed bool,
	algorithm secretDomain.Algorithm,
	b backend.Backend,
	cache *backend.Cache,
	logger *slog.Logger,
) *Service {
	return &Service{
		slot:      slot,
		fixed:     fixed,
		algorithm: algorithm,
		backend:   b,
		cache:     cache,
		logger:    logger,
	}
}

// Slot returns the slot name this service manages.
func (s *Service) Slot() string {
	return s.slot
}

// Fixed reports whether this slot is exempt from rotation.
func (s *Service) Fixed() bool {
	return s.fixed
}

// GetCurrent returns the slot's currently active secret.
//
// The first call on a slot that has never been accessed bootstraps it:
// generates a key, persists the secret record, then writes the indirection
// record. The ordering matters; the indirection record is written last so a
// reader never observes a current-secret ID that does not resolve.
func (s *Service) GetCurrent(ctx context.Context) (*secretDomain.Secret, error) {
	if current := s.current.Load(); current != nil {
		return current, nil
	}

	indirection, err := s.backend.Get(ctx, s.slot)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return s.bootstrap(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve slot %q: %w", s.slot, err)
	}

	// The indirection record's value is the current secret's ID.
	secret, err := s.GetByID(ctx, indirection.Value)
	if err != nil {
		return nil, err
	}

	s.current.Store(secret)
	return secret, nil
}

// GetByID resolves a secret by its opaque ID, consulting the process-local
// cache before the backend. Historical secrets resolve exactly like the
// current one; a missing ID surfaces as ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id string) (*secretDomain.Secret, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached, nil
	}

	stored, err := s.backend.Get(ctx, secretDomain.StorageKey(s.slot, id))
	if err != nil {
		return nil, err
	}

	secret := s.canonical(id, stored)
	s.cache.Put(secret)
	return secret, nil
}

// Rotate creates a fresh secret for the slot and makes it current. The
// superseded secret is never deleted; envelopes referencing it keep
// decrypting through GetByID. Fixed slots return the current secret unchanged.
func (s *Service) Rotate(ctx context.Context) (*secretDomain.Secret, error) {
	if s.fixed {
		s.logger.InfoContext(ctx, "slot is fixed, rotation skipped", "slot", s.slot)
		return s.GetCurrent(ctx)
	}

	secret, err := s.createSecret(ctx, "created by rotation")
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "slot rotated", "slot", s.slot, "secret_id", secret.ID)
	return secret, nil
}

// bootstrap provisions the slot's first secret. Concurrent bootstraps across
// processes are benign: both secret records persist and the last indirection
// write wins, so every written secret remains resolvable by ID.
func (s *Service) bootstrap(ctx context.Context) (*secretDomain.Secret, error) {
	s.logger.InfoContext(ctx, "slot has no secret, bootstrapping", "slot", s.slot)

	secret, err := s.createSecret(ctx, "created by bootstrap")
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "slot bootstrapped", "slot", s.slot, "secret_id", secret.ID)
	return secret, nil
}

// createSecret generates key material, persists the secret record under its
// derived storage key, advances the indirection record and swaps the cached
// current pointer.
func (s *Service) createSecret(ctx context.Context, note string) (*secretDomain.Secret, error) {
	key, err := GenerateKey(secretDomain.KeySize, s.algorithm)
	if err != nil {
		return nil, err
	}

	id := uuid.Must(uuid.NewV7()).String()
	value := base64.StdEncoding.EncodeToString(key)

	stored, err := s.backend.Put(ctx, secretDomain.StorageKey(s.slot, id), value, note)
	if err != nil {
		return nil, fmt.Errorf("failed to persist secret for slot %q: %w", s.slot, err)
	}

	if _, err := s.backend.Put(ctx, s.slot, id, note); err != nil {
		return nil, fmt.Errorf("failed to update indirection record for slot %q: %w", s.slot, err)
	}

	secret := s.canonical(id, stored)
	secret.Value = value
	s.cache.Put(secret)
	s.current.Store(secret)
	return secret, nil
}

// canonical builds the service-level view of a stored record. The backend
// assigns each record its own ID, but a secret's identity is the ID embedded
// in its storage key; reads normalize to it so envelopes, cache entries and
// indirection records always agree.
func (s *Service) canonical(id string, stored *secretDomain.Secret) *secretDomain.Secret {
	return &secretDomain.Secret{
		ID:         id,
		LogicalKey: s.slot,
		Value:      stored.Value,
		Note:       stored.Note,
		CreatedAt:  stored.CreatedAt,
	}
}
