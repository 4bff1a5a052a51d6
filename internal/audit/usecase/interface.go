// Package usecase implements the audited transaction wrapper: a unit of work and its audit
// record commit together or not at all.
package usecase

import (
	"context"
	"time"

	auditDomain "github.com/allisson/credstore/internal/audit/domain"
)

// AuditRecordRepository persists audit records.
type AuditRecordRepository interface {
	// Create stores a record, joining the transaction carried by ctx.
	Create(ctx context.Context, record *auditDomain.AuditRecord) error

	// List returns records newest first, optionally bounded by creation time (inclusive).
	List(
		ctx context.Context,
		offset, limit int,
		createdAtFrom, createdAtTo *time.Time,
	) ([]*auditDomain.AuditRecord, error)
}

// Work is a unit of work run inside the audit transaction. An error rolls back everything;
// a non-2xx result is committed and audited as a failure.
type Work func(ctx context.Context) (auditDomain.Result, error)

// AuditUseCase runs audited operations and reads the audit trail.
type AuditUseCase interface {
	// Perform runs work and writes one audit record in the same transaction. It never
	// returns the cause of an internal failure, only the generic error result.
	Perform(
		ctx context.Context,
		operation string,
		request auditDomain.RequestContext,
		work Work,
	) auditDomain.Result

	// List returns audit records newest first.
	List(
		ctx context.Context,
		offset, limit int,
		createdAtFrom, createdAtTo *time.Time,
	) ([]*auditDomain.AuditRecord, error)
}
