// Package record persists sensitive payloads encrypted at rest. A store pairs
// a plaintext domain shape with its encrypted counterpart: payloads are
// envelope-encrypted on write, decrypted on read, and a re-encryption sweep
// rebinds every persisted envelope still referencing a superseded secret to
// the slot's current one.
package record

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/sealbox/sealbox/internal/errors"
)

// EncryptedRecord is the persisted form of a sensitive record. The envelope
// is stored as two columns: the ID of the exact secret that produced the
// ciphertext, and the ciphertext itself. The secret ID of a stored row is
// never mutated; re-encryption writes a whole new envelope.
type EncryptedRecord struct {
	ID         string
	SecretID   string
	Ciphertext string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Repository persists encrypted records for a single collection.
type Repository interface {
	// Save upserts the record and returns the stored row with
	// server-assigned timestamps filled in.
	Save(ctx context.Context, rec *EncryptedRecord) (*EncryptedRecord, error)

	// FindByID returns the record with the given ID, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*EncryptedRecord, error)

	// StreamAll invokes fn for every record in the collection, one at a
	// time. Iteration stops at the first error returned by fn.
	StreamAll(ctx context.Context, fn func(*EncryptedRecord) error) error
}

func operationFailure(err error, message string) error {
	return fmt.Errorf("%s: %w: %w", message, apperrors.ErrUnavailable, err)
}
