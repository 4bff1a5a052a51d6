// Package mocks provides mock implementations for testing audited handlers.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	auditDomain "github.com/allisson/credstore/internal/audit/domain"
	auditUseCase "github.com/allisson/credstore/internal/audit/usecase"
)

// MockAuditUseCase is a mock implementation of AuditUseCase for testing.
//
// Perform records the call and runs work without a transaction, mirroring the real
// outcome mapping: a work error becomes the generic error result.
type MockAuditUseCase struct {
	mock.Mock
}

// Perform mocks the Perform method of AuditUseCase.
func (m *MockAuditUseCase) Perform(
	ctx context.Context,
	operation string,
	request auditDomain.RequestContext,
	work auditUseCase.Work,
) auditDomain.Result {
	m.Called(ctx, operation, request)
	result, err := work(ctx)
	if err != nil {
		return auditDomain.InternalError()
	}
	return result
}

// List mocks the List method of AuditUseCase.
func (m *MockAuditUseCase) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.AuditRecord, error) {
	args := m.Called(ctx, offset, limit, createdAtFrom, createdAtTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.AuditRecord), args.Error(1)
}
