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

	auditDomain "github.com/allisson/credstore/internal/audit/domain"
)

var recordColumns = []string{
	"id", "request_id", "operation", "principal", "requester_ip", "forwarded_for",
	"host_name", "path", "method", "success", "status_code", "created_at",
}

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

func sampleRecord() *auditDomain.AuditRecord {
	return &auditDomain.AuditRecord{
		ID:           uuid.Must(uuid.NewV7()),
		RequestID:    uuid.Must(uuid.NewV7()),
		Operation:    auditDomain.OperationCredentialUpdate,
		Principal:    "admin",
		RequesterIP:  "127.0.0.1",
		ForwardedFor: "1.2.3.4,5.6.7.8",
		HostName:     "credstore.local",
		Path:         "/v1/data",
		Method:       "POST",
		Success:      true,
		StatusCode:   200,
		CreatedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPostgreSQLAuditRecordRepository(t *testing.T) {
	ctx := context.Background()
	record := sampleRecord()

	t.Run("Create", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_records")).
			WithArgs(
				record.ID, record.RequestID, record.Operation, record.Principal, record.RequesterIP,
				record.ForwardedFor, record.HostName, record.Path, record.Method, record.Success,
				record.StatusCode, record.CreatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgreSQLAuditRecordRepository(db).Create(ctx, record))
	})

	t.Run("List without bounds", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2")).
			WithArgs(50, 0).
			WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(
				record.ID.String(), record.RequestID.String(), record.Operation, record.Principal,
				record.RequesterIP, record.ForwardedFor, record.HostName, record.Path, record.Method,
				record.Success, record.StatusCode, record.CreatedAt,
			))

		records, err := NewPostgreSQLAuditRecordRepository(db).List(ctx, 0, 50, nil, nil)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, record, records[0])
	})

	t.Run("List with bounds", func(t *testing.T) {
		db, mock := newMockDB(t)
		from := record.CreatedAt.Add(-time.Hour)
		to := record.CreatedAt.Add(time.Hour)
		mock.ExpectQuery(regexp.QuoteMeta(
			"WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4",
		)).
			WithArgs(from, to, 10, 20).
			WillReturnRows(sqlmock.NewRows(recordColumns))

		records, err := NewPostgreSQLAuditRecordRepository(db).List(ctx, 20, 10, &from, &to)
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.NotNil(t, records)
	})
}

func TestMySQLAuditRecordRepository(t *testing.T) {
	ctx := context.Background()
	record := sampleRecord()
	id, err := record.ID.MarshalBinary()
	require.NoError(t, err)
	requestID, err := record.RequestID.MarshalBinary()
	require.NoError(t, err)

	t.Run("Create", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_records")).
			WithArgs(
				id, requestID, record.Operation, record.Principal, record.RequesterIP,
				record.ForwardedFor, record.HostName, record.Path, record.Method, record.Success,
				record.StatusCode, record.CreatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewMySQLAuditRecordRepository(db).Create(ctx, record))
	})

	t.Run("List", func(t *testing.T) {
		db, mock := newMockDB(t)
		from := record.CreatedAt.Add(-time.Hour)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE created_at >= ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")).
			WithArgs(from, 50, 0).
			WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(
				id, requestID, record.Operation, record.Principal, record.RequesterIP,
				record.ForwardedFor, record.HostName, record.Path, record.Method,
				record.Success, record.StatusCode, record.CreatedAt,
			))

		records, err := NewMySQLAuditRecordRepository(db).List(ctx, 0, 50, &from, nil)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, record, records[0])
	})
}
