package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/credstore/internal/database"
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	apperrors "github.com/allisson/credstore/internal/errors"
)

// MySQLEncryptedValueRepository implements encrypted value persistence for MySQL.
type MySQLEncryptedValueRepository struct {
	db *sql.DB
}

// Create inserts a new encrypted value.
func (m *MySQLEncryptedValueRepository) Create(
	ctx context.Context,
	value *encryptionDomain.EncryptedValue,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO encrypted_values (id, encryption_key_id, ciphertext, nonce, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	id, err := value.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal encrypted value id")
	}
	keyID, err := value.EncryptionKeyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal encryption key id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		keyID,
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
func (m *MySQLEncryptedValueRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*encryptionDomain.EncryptedValue, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, encryption_key_id, ciphertext, nonce, created_at, updated_at
			  FROM encrypted_values
			  WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal encrypted value id")
	}

	value, err := scanMySQLEncryptedValue(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrap(apperrors.ErrNotFound, "encrypted value not found")
		}
		return nil, apperrors.Wrap(err, "failed to get encrypted value")
	}
	return value, nil
}

// Update rewrites the key id, ciphertext and nonce of a value.
func (m *MySQLEncryptedValueRepository) Update(
	ctx context.Context,
	value *encryptionDomain.EncryptedValue,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE encrypted_values
			  SET encryption_key_id = ?,
				  ciphertext = ?,
				  nonce = ?,
				  updated_at = ?
			  WHERE id = ?`

	id, err := value.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal encrypted value id")
	}
	keyID, err := value.EncryptionKeyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal encryption key id")
	}

	result, err := querier.ExecContext(ctx, query, keyID, value.Ciphertext, value.Nonce, value.UpdatedAt, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update encrypted value")
	}
	return requireAffected(result, "encrypted value")
}

// ListEncryptedBy returns up to limit values encrypted by one of keyIDs, locking them when
// called inside a transaction.
func (m *MySQLEncryptedValueRepository) ListEncryptedBy(
	ctx context.Context,
	keyIDs []uuid.UUID,
	limit int,
) ([]*encryptionDomain.EncryptedValue, error) {
	if len(keyIDs) == 0 {
		return nil, nil
	}
	querier := database.GetTx(ctx, m.db)

	args := make([]any, 0, len(keyIDs)+1)
	for _, id := range keyIDs {
		b, err := id.MarshalBinary()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal encryption key id")
		}
		args = append(args, b)
	}
	args = append(args, limit)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keyIDs)), ", ")
	query := `SELECT id, encryption_key_id, ciphertext, nonce, created_at, updated_at
			  FROM encrypted_values
			  WHERE encryption_key_id IN (` + placeholders + `)
			  ORDER BY created_at ASC, id ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encrypted values")
	}
	defer func() {
		_ = rows.Close()
	}()

	var values []*encryptionDomain.EncryptedValue
	for rows.Next() {
		value, err := scanMySQLEncryptedValue(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan encrypted value")
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate encrypted values")
	}
	return values, nil
}

// CountByKey returns the number of values encrypted by keyID.
func (m *MySQLEncryptedValueRepository) CountByKey(ctx context.Context, keyID uuid.UUID) (int64, error) {
	return m.count(ctx, `SELECT COUNT(*) FROM encrypted_values WHERE encryption_key_id = ?`, keyID)
}

// CountNotEncryptedBy returns the number of values whose key is not keyID.
func (m *MySQLEncryptedValueRepository) CountNotEncryptedBy(ctx context.Context, keyID uuid.UUID) (int64, error) {
	return m.count(ctx, `SELECT COUNT(*) FROM encrypted_values WHERE encryption_key_id <> ?`, keyID)
}

func (m *MySQLEncryptedValueRepository) count(ctx context.Context, query string, keyID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := keyID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal encryption key id")
	}

	var count int64
	if err := querier.QueryRowContext(ctx, query, id).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count encrypted values")
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMySQLEncryptedValue(row rowScanner) (*encryptionDomain.EncryptedValue, error) {
	var (
		value             encryptionDomain.EncryptedValue
		idBytes, keyBytes []byte
	)
	if err := row.Scan(
		&idBytes,
		&keyBytes,
		&value.Ciphertext,
		&value.Nonce,
		&value.CreatedAt,
		&value.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := value.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, err
	}
	if err := value.EncryptionKeyID.UnmarshalBinary(keyBytes); err != nil {
		return nil, err
	}
	return &value, nil
}

// NewMySQLEncryptedValueRepository creates a new MySQL encrypted value repository.
func NewMySQLEncryptedValueRepository(db *sql.DB) *MySQLEncryptedValueRepository {
	return &MySQLEncryptedValueRepository{db: db}
}
