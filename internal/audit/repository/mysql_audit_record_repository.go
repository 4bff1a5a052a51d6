package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	auditDomain "github.com/allisson/credstore/internal/audit/domain"
	"github.com/allisson/credstore/internal/database"
	apperrors "github.com/allisson/credstore/internal/errors"
)

// MySQLAuditRecordRepository implements AuditRecord persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLAuditRecordRepository struct {
	db *sql.DB
}

// Create inserts a new audit record.
func (m *MySQLAuditRecordRepository) Create(ctx context.Context, record *auditDomain.AuditRecord) error {
	querier := database.GetTx(ctx, m.db)

	id, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit record id")
	}
	requestID, err := record.RequestID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal request id")
	}

	query := `INSERT INTO audit_records (id, request_id, operation, principal, requester_ip, forwarded_for,
			  host_name, path, method, success, status_code, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		requestID,
		record.Operation,
		record.Principal,
		record.RequesterIP,
		record.ForwardedFor,
		record.HostName,
		record.Path,
		record.Method,
		record.Success,
		record.StatusCode,
		record.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit record")
	}
	return nil
}

// List retrieves audit records ordered by creation time descending with pagination and
// optional inclusive time bounds.
func (m *MySQLAuditRecordRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.AuditRecord, error) {
	querier := database.GetTx(ctx, m.db)

	var (
		conditions []string
		args       []any
	)
	if createdAtFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *createdAtFrom)
	}
	if createdAtTo != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *createdAtTo)
	}

	query := `SELECT id, request_id, operation, principal, requester_ip, forwarded_for,
			  host_name, path, method, success, status_code, created_at
			  FROM audit_records`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit records")
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*auditDomain.AuditRecord, 0)
	for rows.Next() {
		var (
			record             auditDomain.AuditRecord
			idBytes, requestID []byte
		)
		if err := rows.Scan(
			&idBytes,
			&requestID,
			&record.Operation,
			&record.Principal,
			&record.RequesterIP,
			&record.ForwardedFor,
			&record.HostName,
			&record.Path,
			&record.Method,
			&record.Success,
			&record.StatusCode,
			&record.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit record")
		}
		if err := record.ID.UnmarshalBinary(idBytes); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit record id")
		}
		if err := record.RequestID.UnmarshalBinary(requestID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal request id")
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit records")
	}
	return records, nil
}

// NewMySQLAuditRecordRepository creates a new MySQL AuditRecord repository.
func NewMySQLAuditRecordRepository(db *sql.DB) *MySQLAuditRecordRepository {
	return &MySQLAuditRecordRepository{db: db}
}
