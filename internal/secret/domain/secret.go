// Package domain defines the core domain models for managed secrets.
//
// A secret is an immutable value object: once created it is never mutated, only
// superseded by a newer secret for the same slot. Each slot (a stable logical
// category such as "encryption" or "jwt-signing") points at its currently active
// secret through an indirection record stored under the slot's logical key; the
// secret itself is stored under a derived storage key that embeds its ID. Rotation
// advances the indirection record and never deletes superseded secrets, so any
// envelope referencing an old secret ID stays decryptable indefinitely.
package domain

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Well-known slot names. Each deployment manages this small fixed set of
// logical secret slots; arbitrary customer-supplied keys are out of scope.
const (
	// SlotEncryption holds the key used for envelope encryption of sensitive
	// document fields at rest.
	SlotEncryption = "encryption"
	// SlotSigning holds the key used for signing and verifying session tokens.
	SlotSigning = "jwt-signing"
	// SlotHash holds the key used for deriving searchable keyed hashes. This
	// slot is fixed: rotating it would make previously computed hashes
	// permanently unmatchable.
	SlotHash = "hash"
)

// Secret represents a symmetric key managed by a slot.
type Secret struct {
	// ID is the opaque unique identifier for this secret (UUIDv7 string).
	// Envelopes reference secrets by this ID, never by logical key.
	ID string
	// LogicalKey is the slot name this secret was created for.
	LogicalKey string
	// Value is the base64-encoded symmetric key material.
	Value string
	// Note is a free-form annotation stored alongside the secret.
	Note string
	// CreatedAt is the UTC timestamp when this secret was created.
	CreatedAt time.Time
}

// NewSecret creates a new secret for the given slot with a fresh UUIDv7 ID.
func NewSecret(logicalKey, value, note string) *Secret {
	return &Secret{
		ID:         uuid.Must(uuid.NewV7()).String(),
		LogicalKey: logicalKey,
		Value:      value,
		Note:       note,
		CreatedAt:  time.Now().UTC(),
	}
}

// Key decodes the base64 key material into raw bytes.
func (s *Secret) Key() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode secret value: %w", err)
	}
	return key, nil
}

// StorageKey derives the backend storage key for a secret record. The
// indirection record lives under the bare logical key; the secret itself lives
// under "<logicalKey>-<id>" so that historical secrets remain addressable after
// the indirection record has moved on.
func StorageKey(logicalKey, id string) string {
	return fmt.Sprintf("%s-%s", logicalKey, id)
}
