package backend

import (
	"context"
	"database/sql"

	"github.com/sealbox/sealbox/internal/database"
	apperrors "github.com/sealbox/sealbox/internal/errors"
	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
)

// PostgreSQLBackend implements the embedded secret backend on a PostgreSQL table.
// Writes are idempotent upserts keyed by the logical key.
type PostgreSQLBackend struct {
	db *sql.DB
}

// NewPostgreSQLBackend creates a new PostgreSQL secret backend instance.
func NewPostgreSQLBackend(db *sql.DB) *PostgreSQLBackend {
	return &PostgreSQLBackend{db: db}
}

// EnsureSchema creates the secrets table if it does not exist. Safe to call on
// every startup.
func (p *PostgreSQLBackend) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS secrets (
		secret_key TEXT PRIMARY KEY,
		secret_value TEXT NOT NULL,
		secret_id TEXT NOT NULL,
		secret_created_at TIMESTAMP NOT NULL
	)`

	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return operationFailure(err, "failed to ensure secrets schema")
	}
	return nil
}

// Get retrieves the secret stored under the given logical key.
func (p *PostgreSQLBackend) Get(
	ctx context.Context,
	logicalKey string,
) (*secretDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT secret_key, secret_value, secret_id, secret_created_at
			  FROM secrets
			  WHERE secret_key = $1`

	var secret secretDomain.Secret
	err := querier.QueryRowContext(ctx, query, logicalKey).Scan(
		&secret.LogicalKey,
		&secret.Value,
		&secret.ID,
		&secret.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, operationFailure(err, "failed to get secret")
	}

	return &secret, nil
}

// Put stores a new secret under the given logical key using an upsert.
func (p *PostgreSQLBackend) Put(
	ctx context.Context,
	logicalKey, value, note string,
) (*secretDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)
	secret := secretDomain.NewSecret(logicalKey, value, note)

	query := `INSERT INTO secrets (secret_key, secret_value, secret_id, secret_created_at)
			  VALUES ($1, $2, $3, $4)
			  ON CONFLICT (secret_key)
			  DO UPDATE SET secret_value = EXCLUDED.secret_value,
							secret_id = EXCLUDED.secret_id,
							secret_created_at = EXCLUDED.secret_created_at`

	_, err := querier.ExecContext(
		ctx,
		query,
		secret.LogicalKey,
		secret.Value,
		secret.ID,
		secret.CreatedAt,
	)
	if err != nil {
		return nil, operationFailure(err, "failed to put secret")
	}

	return secret, nil
}
