// Package backend implements pluggable storage for managed secrets.
//
// Three interchangeable implementations are provided: an embedded relational
// table, a Vault KV v2 engine and AWS Secrets Manager. The backend is selected
// once at startup by configuration; there is no runtime re-selection. All
// implementations share the same contract: absence of a logical key maps to
// errors.ErrNotFound (an expected branch that drives slot bootstrap), while
// network and I/O problems map to errors.ErrUnavailable.
package backend

import (
	"context"
	"fmt"

	apperrors "github.com/sealbox/sealbox/internal/errors"
	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
)

// Backend is the storage contract for managed secrets.
type Backend interface {
	// Get retrieves the secret stored under the given logical key.
	// Returns errors.ErrNotFound when no secret exists for the key.
	Get(ctx context.Context, logicalKey string) (*secretDomain.Secret, error)

	// Put stores a new secret under the given logical key, replacing any
	// previous value. Returns the stored secret with its generated ID.
	Put(ctx context.Context, logicalKey, value, note string) (*secretDomain.Secret, error)
}

// operationFailure tags a backend I/O error with ErrUnavailable while
// preserving the underlying cause in the error chain.
func operationFailure(err error, message string) error {
	return fmt.Errorf("%s: %w: %w", message, apperrors.ErrUnavailable, err)
}
