// Package repository implements encryption persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/credstore/internal/database"
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	apperrors "github.com/allisson/credstore/internal/errors"
)

// PostgreSQLCanaryRepository implements canary persistence for PostgreSQL.
// Uses native UUID and BYTEA types with transaction support via database.GetTx().
type PostgreSQLCanaryRepository struct {
	db *sql.DB
}

// Create inserts a new canary.
func (p *PostgreSQLCanaryRepository) Create(ctx context.Context, canary *encryptionDomain.Canary) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO encryption_key_canaries (id, encrypted_value, nonce, salt, created_at)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := querier.ExecContext(
		ctx,
		query,
		canary.ID,
		canary.EncryptedValue,
		canary.Nonce,
		canary.Salt,
		canary.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create canary")
	}
	return nil
}

// List returns every canary, oldest first.
func (p *PostgreSQLCanaryRepository) List(ctx context.Context) ([]*encryptionDomain.Canary, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, encrypted_value, nonce, salt, created_at
			  FROM encryption_key_canaries
			  ORDER BY created_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list canaries")
	}
	defer func() {
		_ = rows.Close()
	}()

	var canaries []*encryptionDomain.Canary
	for rows.Next() {
		var canary encryptionDomain.Canary
		if err := rows.Scan(
			&canary.ID,
			&canary.EncryptedValue,
			&canary.Nonce,
			&canary.Salt,
			&canary.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan canary")
		}
		canaries = append(canaries, &canary)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate canaries")
	}
	return canaries, nil
}

// Delete removes a canary.
func (p *PostgreSQLCanaryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM encryption_key_canaries WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete canary")
	}
	return requireAffected(result, "canary")
}

// NewPostgreSQLCanaryRepository creates a new PostgreSQL canary repository.
func NewPostgreSQLCanaryRepository(db *sql.DB) *PostgreSQLCanaryRepository {
	return &PostgreSQLCanaryRepository{db: db}
}

// requireAffected maps a statement that touched no row to ErrNotFound.
func requireAffected(result sql.Result, entity string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrapf(err, "failed to read affected rows for %s", entity)
	}
	if n == 0 {
		return apperrors.Wrapf(apperrors.ErrNotFound, "%s not found", entity)
	}
	return nil
}
