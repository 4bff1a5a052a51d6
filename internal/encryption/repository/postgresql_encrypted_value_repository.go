package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/credstore/internal/database"
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	apperrors "github.com/allisson/credstore/internal/errors"
)

// PostgreSQLEncryptedValueRepository implements encrypted value persistence for PostgreSQL.
type PostgreSQLEncryptedValueRepository struct {
	db *sql.DB
}

// Create inserts a new encrypted value.
func (p *PostgreSQLEncryptedValueRepository) Create(
	ctx context.Context,
	value *encryptionDomain.EncryptedValue,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO encrypted_values (id, encryption_key_id, ciphertext, nonce, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		value.ID,
		value.EncryptionKeyID,
		value.Ciphertext,
		value.Nonce,
		value.CreatedAt,
		value.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create encrypted value")
	}
	return nil
}

// Get retrieves an encrypted value by id.
func (p *PostgreSQLEncryptedValueRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*encryptionDomain.EncryptedValue, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, encryption_key_id, ciphertext, nonce, created_at, updated_at
			  FROM encrypted_values
			  WHERE id = $1`

	var value encryptionDomain.EncryptedValue
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&value.ID,
		&value.EncryptionKeyID,
		&value.Ciphertext,
		&value.Nonce,
		&value.CreatedAt,
		&value.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "encrypted value not found")
		}
		return nil, apperrors.Wrap(err, "failed to get encrypted value")
	}
	return &value, nil
}

// Update rewrites the key id, ciphertext and nonce of a value.
func (p *PostgreSQLEncryptedValueRepository) Update(
	ctx context.Context,
	value *encryptionDomain.EncryptedValue,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE encrypted_values
			  SET encryption_key_id = $1,
				  ciphertext = $2,
				  nonce = $3,
				  updated_at = $4
			  WHERE id = $5`

	result, err := querier.ExecContext(
		ctx,
		query,
		value.EncryptionKeyID,
		value.Ciphertext,
		value.Nonce,
		value.UpdatedAt,
		value.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update encrypted value")
	}
	return requireAffected(result, "encrypted value")
}

// ListEncryptedBy returns up to limit values encrypted by one of keyIDs, locking them when
// called inside a transaction.
func (p *PostgreSQLEncryptedValueRepository) ListEncryptedBy(
	ctx context.Context,
	keyIDs []uuid.UUID,
	limit int,
) ([]*encryptionDomain.EncryptedValue, error) {
	querier := database.GetTx(ctx, p.db)

	ids := make([]string, len(keyIDs))
	for i, id := range keyIDs {
		ids[i] = id.String()
	}

	query := `SELECT id, encryption_key_id, ciphertext, nonce, created_at, updated_at
			  FROM encrypted_values
			  WHERE encryption_key_id = ANY($1::uuid[])
			  ORDER BY created_at ASC, id ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, pq.Array(ids), limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encrypted values")
	}
	defer func() {
		_ = rows.Close()
	}()

	var values []*encryptionDomain.EncryptedValue
	for rows.Next() {
		var value encryptionDomain.EncryptedValue
		if err := rows.Scan(
			&value.ID,
			&value.EncryptionKeyID,
			&value.Ciphertext,
			&value.Nonce,
			&value.CreatedAt,
			&value.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan encrypted value")
		}
		values = append(values, &value)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate encrypted values")
	}
	return values, nil
}

// CountByKey returns the number of values encrypted by keyID.
func (p *PostgreSQLEncryptedValueRepository) CountByKey(ctx context.Context, keyID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	err := querier.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM encrypted_values WHERE encryption_key_id = $1`,
		keyID,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count encrypted values")
	}
	return count, nil
}

// CountNotEncryptedBy returns the number of values whose key is not keyID.
func (p *PostgreSQLEncryptedValueRepository) CountNotEncryptedBy(
	ctx context.Context,
	keyID uuid.UUID,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	err := querier.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM encrypted_values WHERE encryption_key_id <> $1`,
		keyID,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count encrypted values")
	}
	return count, nil
}

// NewPostgreSQLEncryptedValueRepository creates a new PostgreSQL encrypted value repository.
func NewPostgreSQLEncryptedValueRepository(db *sql.DB) *PostgreSQLEncryptedValueRepository {
	return &PostgreSQLEncryptedValueRepository{db: db}
}
