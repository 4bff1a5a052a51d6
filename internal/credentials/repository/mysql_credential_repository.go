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

const mysqlVersionColumns = `v.id, v.credential_id, c.name, v.type, v.encrypted_value_id,
			  v.generation_parameters, v.signed_by, v.expires_at, v.created_at`

// MySQLCredentialRepository implements credential persistence for MySQL.
// UUIDs are stored as BINARY(16) and names as VARBINARY to keep the unique index exact.
type MySQLCredentialRepository struct {
	db *sql.DB
}

// LockName inserts the credential row when absent and locks it with SELECT ... FOR UPDATE.
func (m *MySQLCredentialRepository) LockName(
	ctx context.Context,
	name string,
) (*credentialsDomain.Credential, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := uuid.Must(uuid.NewV7()).MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal credential id")
	}

	insert := `INSERT INTO credentials (id, name, created_at)
			   VALUES (?, ?, ?)
			   ON DUPLICATE KEY UPDATE id = id`
	if _, err := querier.ExecContext(ctx, insert, id, name, time.Now().UTC()); err != nil {
		return nil, apperrors.Wrap(err, "failed to create credential")
	}

	query := `SELECT id, name, created_at FROM credentials WHERE name = ? FOR UPDATE`

	var (
		credential credentialsDomain.Credential
		idBytes    []byte
	)
	if err := querier.QueryRowContext(ctx, query, name).Scan(&idBytes, &credential.Name, &credential.CreatedAt); err != nil {
		return nil, apperrors.Wrap(err, "failed to lock credential")
	}
	if err := credential.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal credential id")
	}
	return &credential, nil
}

// GetCurrent returns the most recent version of name.
func (m *MySQLCredentialRepository) GetCurrent(
	ctx context.Context,
	name string,
) (*credentialsDomain.CredentialVersion, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlVersionColumns + `
			  FROM credential_versions v
			  JOIN credentials c ON c.id = v.credential_id
			  WHERE c.name = ?
			  ORDER BY v.created_at DESC, v.id DESC
			  LIMIT 1`

	return getMySQLVersion(querier.QueryRowContext(ctx, query, name))
}

// ListVersions returns up to limit versions of name, newest first.
func (m *MySQLCredentialRepository) ListVersions(
	ctx context.Context,
	name string,
	limit int,
) ([]*credentialsDomain.CredentialVersion, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + mysqlVersionColumns + `
			  FROM credential_versions v
			  JOIN credentials c ON c.id = v.credential_id
			  WHERE c.name = ?
			  ORDER BY v.created_at DESC, v.id DESC`
	args := []any{name}
	if limit > 0 {
		query += ` LIMIT ?`
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
		version, err := scanMySQLVersion(rows)
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
func (m *MySQLCredentialRepository) GetVersion(
	ctx context.Context,
	id uuid.UUID,
) (*credentialsDomain.CredentialVersion, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal credential version id")
	}

	query := `SELECT ` + mysqlVersionColumns + `
			  FROM credential_versions v
			  JOIN credentials c ON c.id = v.credential_id
			  WHERE v.id = ?`

	return getMySQLVersion(querier.QueryRowContext(ctx, query, idBytes))
}

// CreateVersion appends a version.
func (m *MySQLCredentialRepository) CreateVersion(
	ctx context.Context,
	version *credentialsDomain.CredentialVersion,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := version.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal credential version id")
	}
	credentialID, err := version.CredentialID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal credential id")
	}
	valueID, err := version.EncryptedValueID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal encrypted value id")
	}
	var signedBy []byte
	if version.SignedBy.Valid {
		if signedBy, err = version.SignedBy.UUID.MarshalBinary(); err != nil {
			return apperrors.Wrap(err, "failed to marshal signing version id")
		}
	}

	query := `INSERT INTO credential_versions
			  (id, credential_id, type, encrypted_value_id, generation_parameters, signed_by, expires_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		credentialID,
		string(version.Type),
		valueID,
		nullableJSON(version.GenerationParameters),
		signedBy,
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
func (m *MySQLCredentialRepository) DeleteByName(ctx context.Context, name string) error {
	querier := database.GetTx(ctx, m.db)

	values := `DELETE FROM encrypted_values
			   WHERE id IN (
				   SELECT encrypted_value_id FROM (
					   SELECT v.encrypted_value_id
					   FROM credential_versions v
					   JOIN credentials c ON c.id = v.credential_id
					   WHERE c.name = ?
				   ) AS doomed
			   )`
	if _, err := querier.ExecContext(ctx, values, name); err != nil {
		return apperrors.Wrap(err, "failed to delete credential values")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM credentials WHERE name = ?`, name)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete credential")
	}
	return requireCredential(result)
}

func getMySQLVersion(row *sql.Row) (*credentialsDomain.CredentialVersion, error) {
	version, err := scanMySQLVersion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, credentialsDomain.ErrCredentialNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get credential version")
	}
	return version, nil
}

func scanMySQLVersion(row rowScanner) (*credentialsDomain.CredentialVersion, error) {
	var (
		version                           credentialsDomain.CredentialVersion
		idBytes, credentialBytes, valueID []byte
		signedBy, parameters              []byte
		credType                          string
		expiresAt                         sql.NullTime
	)
	if err := row.Scan(
		&idBytes,
		&credentialBytes,
		&version.Name,
		&credType,
		&valueID,
		&parameters,
		&signedBy,
		&expiresAt,
		&version.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := version.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, err
	}
	if err := version.CredentialID.UnmarshalBinary(credentialBytes); err != nil {
		return nil, err
	}
	if err := version.EncryptedValueID.UnmarshalBinary(valueID); err != nil {
		return nil, err
	}
	if len(signedBy) > 0 {
		if err := version.SignedBy.UUID.UnmarshalBinary(signedBy); err != nil {
			return nil, err
		}
		version.SignedBy.Valid = true
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

// NewMySQLCredentialRepository creates a new MySQL credential repository.
func NewMySQLCredentialRepository(db *sql.DB) *MySQLCredentialRepository {
	return &MySQLCredentialRepository{db: db}
}
