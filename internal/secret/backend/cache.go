package backend

import (
	"sync"

	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
)

// Cache is a process-local cache of secrets keyed by their opaque ID.
// Backends whose remote lookups are costly (Secrets Manager lists then
// filters) populate it on every successful fetch, and the secret service
// consults it before hitting the backend when resolving historical secrets
// by ID. Secrets are immutable, so entries never need invalidation.
type Cache struct {
	secrets sync.Map // map[string]*secretDomain.Secret
}

// NewCache creates an empty secret cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the cached secret for the given ID, if present.
func (c *Cache) Get(id string) (*secretDomain.Secret, bool) {
	if value, ok := c.secrets.Load(id); ok {
		return value.(*secretDomain.Secret), true
	}
	return nil, false
}

// Put stores a secret in the cache under its ID.
func (c *Cache) Put(secret *secretDomain.Secret) {
	if secret == nil || secret.ID == "" {
		return
	}
	c.secrets.Store(secret.ID, secret)
}
