// Package repository implements credential persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
	"github.com/allisson/credstore/internal/database"
	apperrors "github.com/allisson/credstore/internal/errors"
)

const postgresVersionColumns = `v.id, v.credential_id, c.name, v.type, v.encrypted_value_id,
			  v.generation_parameters, v.signed_by, v.expires_at, v.created_at`

// PostgreSQLCredentialRepository implements credential persistence for PostgreSQL.
// Uses native UUID and JSONB types with transaction support via database.GetTx().
type PostgreSQLCredentialRepository struct {
	db *sql.DB
}

// LockName inserts the credential row when absent and locks it with SELECT ... FOR UPDATE.
func (p *PostgreSQLCredentialRepository) LockName(
	ctx context.Context,
	name string,
) (*credentialsDomain.Credential, error) {
	querier := database.GetTx(ctx, p.db)

	insert := `INSERT INTO credentials (id, name, created_at)
			   VALUES ($1, $2, $3)
			   ON CONFLICT (name) DO NOTHING`
	if _, err := querier.ExecContext(ctx, insert, uuid.Must(uuid.NewV7()), name, time.Now().UTC()); err != nil {
		return nil, apperrors.Wrap(err, "failed to create credential")
	}

	query := `SELECT id, name, created_at FROM credentials WHERE name = $1 FOR UPDATE`

	var credential credentialsDomain.Credential
	err := querier.QueryRowContext(ctx, query, name).Scan(&credential.ID, &credential.Name, &credential.CreatedAt)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to lock credential")
	}
	return &credential, nil
}

// GetCurrent returns the most recent version of name.
func (p *PostgreSQLCredentialRepository) GetCurrent(
	ctx context.Context,
	name string,
) (*credentialsDomain.CredentialVersion, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresVersionColumns + `
			  FROM credential_versions v
			  JOIN credentials c ON c.id = v.credential_id
			  WHERE c.name = $1
			  ORDER BY v.created_at DESC, v.id DESC
			  LIMIT 1`

	return getPostgreSQLVersion(querier.QueryRowContext(ctx, query, name))
}

// ListVersions returns up to limit versions of name, newest first.
func (p *PostgreSQLCredentialRepository) ListVersions(
	ctx context.Context,
	name string,
	limit int,
) ([]*credentialsDomain.CredentialVersion, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresVersionColumns + `
			  FROM credential_versions v
			  JOIN credentials c ON c.id = v.credential_id
			  WHERE c.name = $1
			  ORDER BY v.created_at DESC, v.id DESC`
	args := []any{name}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list credential versions")
	}
	defer func() {
		_ = rows.Close()
	}()

	var versions []*credentialsDomain.CredentialVersion
	for rows.Next() {
		version, err := scanPostgreSQLVersion(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan credential version")
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate credential versions")
	}
	return versions, nil
}

// GetVersion returns a version by id.
func (p *PostgreSQLCredentialRepository) GetVersion(
	ctx context.Context,
	id uuid.UUID,
) (*credentialsDomain.CredentialVersion, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + postgresVersionColumns + `
			  FROM credential_versions v
			  JOIN credentials c ON c.id = v.credential_id
			  WHERE v.id = $1`

	return getPostgreSQLVersion(querier.QueryRowContext(ctx, query, id))
}

// CreateVersion appends a version.
func (p *PostgreSQLCredentialRepository) CreateVersion(
	ctx context.Context,
	version *credentialsDomain.CredentialVersion,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO credential_versions
			  (id, credential_id, type, encrypted_value_id, generation_parameters, signed_by, expires_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		version.ID,
		version.CredentialID,
		string(version.Type),
		version.EncryptedValueID,
		nullableJSON(version.GenerationParameters),
		version.SignedBy,
		version.ExpiresAt,
		version.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create credential version")
	}
	return nil
}

// DeleteByName removes the encrypted values of every version, which cascades to the
// versions, then the credential row.
func (p *PostgreSQLCredentialRepository) DeleteByName(ctx context.Context, name string) error {
	querier := database.GetTx(ctx, p.db)

	values := `DELETE FROM encrypted_values
			   WHERE id IN (
				   SELECT v.encrypted_value_id
				   FROM credential_versions v
				   JOIN credentials c ON c.id = v.credential_id
				   WHERE c.name = $1
			   )`
	if _, err := querier.ExecContext(ctx, values, name); err != nil {
		return apperrors.Wrap(err, "failed to delete credential values")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM credentials WHERE name = $1`, name)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete credential")
	}
	return requireCredential(result)
}

func getPostgreSQLVersion(row *sql.Row) (*credentialsDomain.CredentialVersion, error) {
	version, err := scanPostgreSQLVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credentialsDomain.ErrCredentialNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get credential version")
	}
	return version, nil
}

func scanPostgreSQLVersion(row rowScanner) (*credentialsDomain.CredentialVersion, error) {
	var (
		version    credentialsDomain.CredentialVersion
		credType   string
		parameters []byte
		expiresAt  sql.NullTime
	)
	if err := row.Scan(
		&version.ID,
		&version.CredentialID,
		&version.Name,
		&credType,
		&version.EncryptedValueID,
		&parameters,
		&version.SignedBy,
		&expiresAt,
		&version.CreatedAt,
	); err != nil {
		return nil, err
	}
	version.Type = credentialsDomain.CredentialType(credType)
	if len(parameters) > 0 {
		version.GenerationParameters = json.RawMessage(parameters)
	}
	if expiresAt.Valid {
		version.ExpiresAt = &expiresAt.Time
	}
	return &version, nil
}

// NewPostgreSQLCredentialRepository creates a new PostgreSQL credential repository.
func NewPostgreSQLCredentialRepository(db *sql.DB) *PostgreSQLCredentialRepository {
	return &PostgreSQLCredentialRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// nullableJSON sends JSON as text so both JSONB and MySQL JSON columns accept it.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func requireCredential(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows for credential")
	}
	if n == 0 {
		return credentialsDomain.ErrCredentialNotFound
	}
	return nil
}
