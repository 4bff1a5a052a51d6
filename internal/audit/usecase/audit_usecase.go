package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/credstore/internal/audit/domain"
	"github.com/allisson/credstore/internal/database"
	apperrors "github.com/allisson/credstore/internal/errors"
)

type auditUseCase struct {
	txManager database.TxManager
	repo      AuditRecordRepository
	logger    *slog.Logger
}

// NewAuditUseCase creates a new AuditUseCase.
func NewAuditUseCase(txManager database.TxManager, repo AuditRecordRepository, logger *slog.Logger) AuditUseCase {
	return &auditUseCase{txManager: txManager, repo: repo, logger: logger}
}

// Perform begins a transaction, runs work, writes the audit record and commits.
//
// A work error, an audit write failure or a commit failure rolls back the whole
// transaction and yields the generic 500 result; a failed audit record is then written on
// its own. A non-2xx result is audited as a failure and committed, and returned unchanged.
func (a *auditUseCase) Perform(
	ctx context.Context,
	operation string,
	request auditDomain.RequestContext,
	work Work,
) auditDomain.Result {
	var result auditDomain.Result

	err := a.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if result, err = work(ctx); err != nil {
			return apperrors.Wrapf(err, "%s failed", operation)
		}
		if err := a.repo.Create(ctx, newRecord(operation, request, result)); err != nil {
			return apperrors.Wrap(err, "failed to write audit record")
		}
		return nil
	})
	if err == nil {
		return result
	}

	a.logger.Error("audited operation rolled back",
		slog.String("operation", operation),
		slog.String("request_id", request.RequestID.String()),
		slog.Any("error", err),
	)
	failure := auditDomain.InternalError()
	record := newRecord(operation, request, failure)
	if err := a.txManager.WithTx(ctx, func(ctx context.Context) error {
		return a.repo.Create(ctx, record)
	}); err != nil {
		a.logger.Error("failed to write audit record for rolled back operation",
			slog.String("operation", operation),
			slog.String("request_id", request.RequestID.String()),
			slog.Any("error", err),
		)
	}
	return failure
}

func newRecord(operation string, request auditDomain.RequestContext, result auditDomain.Result) *auditDomain.AuditRecord {
	return &auditDomain.AuditRecord{
		ID:           uuid.Must(uuid.NewV7()),
		RequestID:    request.RequestID,
		Operation:    operation,
		Principal:    request.Principal,
		RequesterIP:  request.RequesterIP,
		ForwardedFor: request.ForwardedFor,
		HostName:     request.HostName,
		Path:         request.Path,
		Method:       request.Method,
		Success:      result.Successful(),
		StatusCode:   result.StatusCode,
		CreatedAt:    time.Now().UTC(),
	}
}

// List retrieves audit records ordered by creation time descending.
func (a *auditUseCase) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.AuditRecord, error) {
	records, err := a.repo.List(ctx, offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit records")
	}
	return records, nil
}
