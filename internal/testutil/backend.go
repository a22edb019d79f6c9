// Package testutil provides in-memory test doubles shared across package tests.
package testutil

import (
	"context"
	"sync"

	apperrors "github.com/sealbox/sealbox/internal/errors"
	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
)

// MemoryBackend is an in-memory secret backend with optional fault injection.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]*secretDomain.Secret

	// GetErr and PutErr, when set, are returned by the respective operations.
	GetErr error
	PutErr error

	// PutCalls counts Put invocations, useful for idempotency assertions.
	PutCalls int
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]*secretDomain.Secret)}
}

// Get retrieves the secret stored under the given logical key.
func (m *MemoryBackend) Get(
	_ context.Context,
	logicalKey string,
) (*secretDomain.Secret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}

	secret, ok := m.entries[logicalKey]
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	copied := *secret
	return &copied, nil
}

// Put stores a new secret under the given logical key.
func (m *MemoryBackend) Put(
	_ context.Context,
	logicalKey, value, note string,
) (*secretDomain.Secret, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutCalls++
	if m.PutErr != nil {
		return nil, m.PutErr
	}

	secret := secretDomain.NewSecret(logicalKey, value, note)
	m.entries[logicalKey] = secret

	copied := *secret
	return &copied, nil
}

// Keys returns the stored logical keys, useful for bootstrap assertions.
func (m *MemoryBackend) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	return keys
}
