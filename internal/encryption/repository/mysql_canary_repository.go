package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/credstore/internal/database"
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	apperrors "github.com/allisson/credstore/internal/errors"
)

// MySQLCanaryRepository implements canary persistence for MySQL.
// Uses BINARY(16) for UUIDs and BLOB for binary data with transaction support.
type MySQLCanaryRepository struct {
	db *sql.DB
}

// Create inserts a new canary.
func (m *MySQLCanaryRepository) Create(ctx context.Context, canary *encryptionDomain.Canary) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO encryption_key_canaries (id, encrypted_value, nonce, salt, created_at)
			  VALUES (?, ?, ?, ?, ?)`

	id, err := canary.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal canary id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
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
func (m *MySQLCanaryRepository) List(ctx context.Context) ([]*encryptionDomain.Canary, error) {
	querier := database.GetTx(ctx, m.db)

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
		var (
			canary  encryptionDomain.Canary
			idBytes []byte
		)
		if err := rows.Scan(
			&idBytes,
			&canary.EncryptedValue,
			&canary.Nonce,
			&canary.Salt,
			&canary.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan canary")
		}
		if err := canary.ID.UnmarshalBinary(idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal canary id")
		}
		canaries = append(canaries, &canary)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate canaries")
	}
	return canaries, nil
}

// Delete removes a canary.
func (m *MySQLCanaryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal canary id")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM encryption_key_canaries WHERE id = ?`, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete canary")
	}
	return requireAffected(result, "canary")
}

// NewMySQLCanaryRepository creates a new MySQL canary repository.
func NewMySQLCanaryRepository(db *sql.DB) *MySQLCanaryRepository {
	return &MySQLCanaryRepository{db: db}
}
