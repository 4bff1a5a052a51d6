package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/credstore/internal/database"
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	apperrors "github.com/allisson/credstore/internal/errors"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestPostgreSQLCanaryRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	canary := &encryptionDomain.Canary{
		ID:             uuid.Must(uuid.NewV7()),
		EncryptedValue: []byte("ciphertext"),
		Nonce:          []byte("nonce"),
		Salt:           []byte("salt"),
		CreatedAt:      now,
	}

	t.Run("Create", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO encryption_key_canaries")).
			WithArgs(canary.ID, canary.EncryptedValue, canary.Nonce, canary.Salt, canary.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgreSQLCanaryRepository(db).Create(ctx, canary))
	})

	t.Run("Create inside a transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO encryption_key_canaries")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectRollback()

		repo := NewPostgreSQLCanaryRepository(db)
		err := database.NewTxManager(db).WithTx(ctx, func(ctx context.Context) error {
			require.NoError(t, repo.Create(ctx, canary))
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("List", func(t *testing.T) {
		db, mock := newMockDB(t)
		rows := sqlmock.NewRows([]string{"id", "encrypted_value", "nonce", "salt", "created_at"}).
			AddRow(canary.ID.String(), canary.EncryptedValue, canary.Nonce, canary.Salt, canary.CreatedAt).
			AddRow(uuid.Must(uuid.NewV7()).String(), []byte("c2"), []byte{}, nil, now)
		mock.ExpectQuery(regexp.QuoteMeta("FROM encryption_key_canaries")).WillReturnRows(rows)

		canaries, err := NewPostgreSQLCanaryRepository(db).List(ctx)
		require.NoError(t, err)
		require.Len(t, canaries, 2)
		assert.Equal(t, canary.ID, canaries[0].ID)
		assert.Equal(t, canary.Salt, canaries[0].Salt)
		assert.Empty(t, canaries[1].Salt)
	})

	t.Run("List failure", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM encryption_key_canaries")).WillReturnError(assert.AnError)

		_, err := NewPostgreSQLCanaryRepository(db).List(ctx)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("Delete", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM encryption_key_canaries")).
			WithArgs(canary.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM encryption_key_canaries")).
			WithArgs(canary.ID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewPostgreSQLCanaryRepository(db)
		require.NoError(t, repo.Delete(ctx, canary.ID))
		assert.ErrorIs(t, repo.Delete(ctx, canary.ID), apperrors.ErrNotFound)
	})
}

func TestPostgreSQLEncryptedValueRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	value := &encryptionDomain.EncryptedValue{
		ID:              uuid.Must(uuid.NewV7()),
		EncryptionKeyID: uuid.Must(uuid.NewV7()),
		Ciphertext:      []byte("ciphertext"),
		Nonce:           []byte("nonce"),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	columns := []string{"id", "encryption_key_id", "ciphertext", "nonce", "created_at", "updated_at"}

	t.Run("Create", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO encrypted_values")).
			WithArgs(value.ID, value.EncryptionKeyID, value.Ciphertext, value.Nonce, value.CreatedAt, value.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgreSQLEncryptedValueRepository(db).Create(ctx, value))
	})

	t.Run("Get", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM encrypted_values")).
			WithArgs(value.ID).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				value.ID.String(), value.EncryptionKeyID.String(), value.Ciphertext, value.Nonce, value.CreatedAt, value.UpdatedAt,
			))

		got, err := NewPostgreSQLEncryptedValueRepository(db).Get(ctx, value.ID)
		require.NoError(t, err)
		assert.Equal(t, value, got)
	})

	t.Run("Get not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM encrypted_values")).
			WithArgs(value.ID).
			WillReturnError(sql.ErrNoRows)

		_, err := NewPostgreSQLEncryptedValueRepository(db).Get(ctx, value.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("UPDATE encrypted_values")).
			WithArgs(value.EncryptionKeyID, value.Ciphertext, value.Nonce, value.UpdatedAt, value.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgreSQLEncryptedValueRepository(db).Update(ctx, value))
	})

	t.Run("ListEncryptedBy", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE encryption_key_id = ANY($1::uuid[])")).
			WithArgs(sqlmock.AnyArg(), 10).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				value.ID.String(), value.EncryptionKeyID.String(), value.Ciphertext, value.Nonce, value.CreatedAt, value.UpdatedAt,
			))

		values, err := NewPostgreSQLEncryptedValueRepository(db).
			ListEncryptedBy(ctx, []uuid.UUID{value.EncryptionKeyID}, 10)
		require.NoError(t, err)
		require.Len(t, values, 1)
		assert.Equal(t, value.ID, values[0].ID)
	})

	t.Run("counts", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE encryption_key_id = $1")).
			WithArgs(value.EncryptionKeyID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
		mock.ExpectQuery(regexp.QuoteMeta("WHERE encryption_key_id <> $1")).
			WithArgs(value.EncryptionKeyID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		repo := NewPostgreSQLEncryptedValueRepository(db)
		n, err := repo.CountByKey(ctx, value.EncryptionKeyID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		n, err = repo.CountNotEncryptedBy(ctx, value.EncryptionKeyID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}
