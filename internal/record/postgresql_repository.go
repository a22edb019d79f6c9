package record

import (
	"context"
	"database/sql"
	"time"

	"github.com/sealbox/sealbox/internal/database"
	apperrors "github.com/sealbox/sealbox/internal/errors"
)

// PostgreSQLRepository persists encrypted records in PostgreSQL. All
// collections share the encrypted_records table; each repository instance is
// scoped to one collection by the collection column.
type PostgreSQLRepository struct {
	db         *sql.DB
	collection string
}

// NewPostgreSQLRepository creates a repository scoped to the given collection.
func NewPostgreSQLRepository(db *sql.DB, collection string) *PostgreSQLRepository {
	return &PostgreSQLRepository{db: db, collection: collection}
}

// Save upserts the record. The secret ID and ciphertext of an existing row
// are replaced wholesale; created_at is preserved on conflict.
func (p *PostgreSQLRepository) Save(
	ctx context.Context,
	rec *EncryptedRecord,
) (*EncryptedRecord, error) {
	querier := database.GetTx(ctx, p.db)

	now := time.Now().UTC()
	stored := *rec
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	query := `INSERT INTO encrypted_records (id, collection, secret_id, ciphertext, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (id)
			  DO UPDATE SET secret_id = EXCLUDED.secret_id,
							ciphertext = EXCLUDED.ciphertext,
							updated_at = EXCLUDED.updated_at`

	_, err := querier.ExecContext(
		ctx,
		query,
		stored.ID,
		p.collection,
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
func (p *PostgreSQLRepository) FindByID(
	ctx context.Context,
	id string,
) (*EncryptedRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, secret_id, ciphertext, created_at, updated_at
			  FROM encrypted_records
			  WHERE id = $1 AND collection = $2`

	var rec EncryptedRecord
	err := querier.QueryRowContext(ctx, query, id, p.collection).Scan(
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

// StreamAll iterates the collection one row at a time in insertion order.
// Rows are decoded lazily from the cursor, so large collections are never
// buffered in memory.
func (p *PostgreSQLRepository) StreamAll(
	ctx context.Context,
	fn func(*EncryptedRecord) error,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, secret_id, ciphertext, created_at, updated_at
			  FROM encrypted_records
			  WHERE collection = $1
			  ORDER BY id`

	rows, err := querier.QueryContext(ctx, query, p.collection)
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
