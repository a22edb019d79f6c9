package backend

import (
	"context"
	"database/sql"

	"github.com/sealbox/sealbox/internal/database"
	apperrors "github.com/sealbox/sealbox/internal/errors"
	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
)

// MySQLBackend implements the embedded secret backend on a MySQL table.
// Writes are idempotent upserts keyed by the logical key.
type MySQLBackend struct {
	db *sql.DB
}

// NewMySQLBackend creates a new MySQL secret backend instance.
func NewMySQLBackend(db *sql.DB) *MySQLBackend {
	return &MySQLBackend{db: db}
}

// EnsureSchema creates the secrets table if it does not exist. Safe to call on
// every startup. MySQL requires a bounded key length for the primary key.
func (m *MySQLBackend) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS secrets (
		secret_key VARCHAR(255) PRIMARY KEY,
		secret_value TEXT NOT NULL,
		secret_id VARCHAR(36) NOT NULL,
		secret_created_at TIMESTAMP NOT NULL
	)`

	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return operationFailure(err, "failed to ensure secrets schema")
	}
	return nil
}

// Get retrieves the secret stored under the given logical key.
func (m *MySQLBackend) Get(
	ctx context.Context,
	logicalKey string,
) (*secretDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT secret_key, secret_value, secret_id, secret_created_at
			  FROM secrets
			  WHERE secret_key = ?`

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
func (m *MySQLBackend) Put(
	ctx context.Context,
	logicalKey, value, note string,
) (*secretDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)
	secret := secretDomain.NewSecret(logicalKey, value, note)

	query := `INSERT INTO secrets (secret_key, secret_value, secret_id, secret_created_at)
			  VALUES (?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE secret_value = VALUES(secret_value),
									  secret_id = VALUES(secret_id),
									  secret_created_at = VALUES(secret_created_at)`

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
