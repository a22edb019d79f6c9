package record

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sealbox/sealbox/internal/crypto"
)

// Record is the in-memory form of a sensitive record: the payload is
// plaintext here and only ever encrypted in its persisted counterpart.
type Record[S any] struct {
	ID        string
	Payload   S
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is a generic persistence adapter that transparently encrypts payloads
// on write and decrypts them on read. One store serves one collection, bound
// to the encryption slot's secret service through the resolver.
type Store[S any] struct {
	name     string
	repo     Repository
	cipher   *crypto.EnvelopeCipher
	resolver crypto.SecretResolver
	logger   *slog.Logger
}

// NewStore creates a store for the named collection.
func NewStore[S any](
	name string,
	repo Repository,
	cipher *crypto.EnvelopeCipher,
	resolver crypto.SecretResolver,
	logger *slog.Logger,
) *Store[S] {
	return &Store[S]{
		name:     name,
		repo:     repo,
		cipher:   cipher,
		resolver: resolver,
		logger:   logger,
	}
}

// Name returns the collection name this store serves.
func (s *Store[S]) Name() string {
	return s.name
}

// Save encrypts the payload, persists the encrypted record and decrypts the
// stored row back, so the returned record reflects server-assigned fields
// such as generated IDs and timestamps.
func (s *Store[S]) Save(ctx context.Context, rec *Record[S]) (*Record[S], error) {
	envelope, err := s.cipher.Encrypt(ctx, s.resolver, rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt record payload: %w", err)
	}

	id := rec.ID
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}

	stored, err := s.repo.Save(ctx, &EncryptedRecord{
		ID:         id,
		SecretID:   envelope.SecretID,
		Ciphertext: envelope.Ciphertext,
		CreatedAt:  rec.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	return s.decode(ctx, stored)
}

// FindByID fetches the encrypted record and decrypts it transparently.
func (s *Store[S]) FindByID(ctx context.Context, id string) (*Record[S], error) {
	stored, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decode(ctx, stored)
}

// FindAll streams the collection and returns every record decrypted.
func (s *Store[S]) FindAll(ctx context.Context) ([]*Record[S], error) {
	var records []*Record[S]
	err := s.repo.StreamAll(ctx, func(stored *EncryptedRecord) error {
		decoded, err := s.decode(ctx, stored)
		if err != nil {
			return err
		}
		records = append(records, decoded)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReencryptAll streams every persisted record and rewrites those whose
// envelope is bound to a superseded secret, producing a new envelope under
// the slot's current secret. Records already bound to the current secret are
// skipped, so the sweep is idempotent and safe to re-run after a partial
// failure. Returns the number of records rewritten.
func (s *Store[S]) ReencryptAll(ctx context.Context) (int, error) {
	current, err := s.resolver.GetCurrent(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve current secret: %w", err)
	}

	rewritten := 0
	err = s.repo.StreamAll(ctx, func(stored *EncryptedRecord) error {
		if stored.SecretID == current.ID {
			return nil
		}

		var payload S
		envelope := &crypto.Envelope{SecretID: stored.SecretID, Ciphertext: stored.Ciphertext}
		if err := s.cipher.Decrypt(ctx, s.resolver, envelope, &payload); err != nil {
			return fmt.Errorf("failed to decrypt record %q: %w", stored.ID, err)
		}

		fresh, err := s.cipher.Encrypt(ctx, s.resolver, payload)
		if err != nil {
			return fmt.Errorf("failed to re-encrypt record %q: %w", stored.ID, err)
		}

		if _, err := s.repo.Save(ctx, &EncryptedRecord{
			ID:         stored.ID,
			SecretID:   fresh.SecretID,
			Ciphertext: fresh.Ciphertext,
			CreatedAt:  stored.CreatedAt,
		}); err != nil {
			return err
		}

		rewritten++
		return nil
	})
	if err != nil {
		return rewritten, err
	}

	s.logger.InfoContext(ctx, "re-encryption sweep finished",
		"collection", s.name,
		"secret_id", current.ID,
		"rewritten", rewritten,
	)
	return rewritten, nil
}

func (s *Store[S]) decode(ctx context.Context, stored *EncryptedRecord) (*Record[S], error) {
	var payload S
	envelope := &crypto.Envelope{SecretID: stored.SecretID, Ciphertext: stored.Ciphertext}
	if err := s.cipher.Decrypt(ctx, s.resolver, envelope, &payload); err != nil {
		return nil, err
	}

	return &Record[S]{
		ID:        stored.ID,
		Payload:   payload,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}, nil
}
