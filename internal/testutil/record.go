package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/sealbox/sealbox/internal/errors"
	"github.com/sealbox/sealbox/internal/record"
)

// MemoryRecordRepository is an in-memory encrypted record repository with
// write counting for sweep idempotency assertions.
type MemoryRecordRepository struct {
	mu      sync.Mutex
	records map[string]*record.EncryptedRecord

	// SaveErr, when set, is returned by Save.
	SaveErr error

	// SaveCalls counts Save invocations.
	SaveCalls int
}

// NewMemoryRecordRepository creates an empty in-memory repository.
func NewMemoryRecordRepository() *MemoryRecordRepository {
	return &MemoryRecordRepository{records: make(map[string]*record.EncryptedRecord)}
}

// Save upserts the record, preserving CreatedAt on replace.
func (m *MemoryRecordRepository) Save(
	_ context.Context,
	rec *record.EncryptedRecord,
) (*record.EncryptedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls++
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}

	now := time.Now().UTC()
	stored := *rec
	if existing, ok := m.records[stored.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	m.records[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

// FindByID returns the stored record or ErrNotFound.
func (m *MemoryRecordRepository) FindByID(
	_ context.Context,
	id string,
) (*record.EncryptedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	copied := *rec
	return &copied, nil
}

// StreamAll iterates stored records in ID order.
func (m *MemoryRecordRepository) StreamAll(
	_ context.Context,
	fn func(*record.EncryptedRecord) error,
) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	snapshot := make([]*record.EncryptedRecord, 0, len(ids))
	for _, id := range ids {
		copied := *m.records[id]
		snapshot = append(snapshot, &copied)
	}
	m.mu.Unlock()

	for _, rec := range snapshot {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// SecretIDs returns the distinct secret IDs referenced by stored records.
func (m *MemoryRecordRepository) SecretIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	var ids []string
	for _, rec := range m.records {
		if !seen[rec.SecretID] {
			seen[rec.SecretID] = true
			ids = append(ids, rec.SecretID)
		}
	}
	sort.Strings(ids)
	return ids
}
