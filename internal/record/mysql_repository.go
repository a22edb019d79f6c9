package record

import (
	"context"
	"database/sql"
	"time"

	"github.com/sealbox/sealbox/internal/database"
	apperrors "github.com/sealbox/sealbox/internal/errors"
)

// MySQLRepository persists encrypted records in MySQL. Same row layout as the
// PostgreSQL repository, with MySQL upsert syntax.
type MySQLRepository struct {
	db         *sql.DB
	collection string
}

// NewMySQLRepository creates a repository scoped to the given collection.
func NewMySQLRepository(db *sql.DB, collection string) *MySQLRepository {
	return &MySQLRepository{db: db, collection: collection}
}

// Save upserts the record, preserving created_at on replace.
func (m *MySQLRepository) Save(
	ctx context.Context,
	rec *EncryptedRecord,
) (*EncryptedRecord, error) {
	querier := database.GetTx(ctx, m.db)

	now := time.Now().UTC()
	stored := *rec
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	query := `INSERT INTO encrypted_records (id, collection, secret_id, ciphertext, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)
			  ON DUPLICATE KEY UPDATE secret_id = VALUES(secret_id),
									  ciphertext = VALUES(ciphertext),
									  updated_at = VALUES(updated_at)`

	_, err := querier.ExecContext(
		ctx,
		query,
		stored.ID,
		m.collection,
		stored.SecretID,
		stored.Ciphertext,
		stored.CreatedAt,
		stored.UpdatedAt,
	)
	if err != nil {
		return nil, operationFailure(err, "failed to save encrypted record")
	}

	return &stored, nil
}

// FindByID returns the record with the given ID within this collection.
func (m *MySQLRepository) FindByID(
	ctx context.Context,
	id string,
) (*EncryptedRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, secret_id, ciphertext, created_at, updated_at
			  FROM encrypted_records
			  WHERE id = ? AND collection = ?`

	var rec EncryptedRecord
	err := querier.QueryRowContext(ctx, query, id, m.collection).Scan(
		&rec.ID,
		&rec.SecretID,
		&rec.Ciphertext,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, operationFailure(err, "failed to find encrypted record")
	}

	return &rec, nil
}

// StreamAll iterates the collection one row at a time.
func (m *MySQLRepository) StreamAll(
	ctx context.Context,
	fn func(*EncryptedRecord) error,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, secret_id, ciphertext, created_at, updated_at
			  FROM encrypted_records
			  WHERE collection = ?
			  ORDER BY id`

	rows, err := querier.QueryContext(ctx, query, m.collection)
	if err != nil {
		return operationFailure(err, "failed to stream encrypted records")
	}
	defer rows.Close()

	for rows.Next() {
		var rec EncryptedRecord
		err := rows.Scan(&rec.ID, &rec.SecretID, &rec.Ciphertext, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return operationFailure(err, "failed to scan encrypted record")
		}
		if err := fn(&rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return operationFailure(err, "failed to stream encrypted records")
	}

	return nil
}
