// Package domain defines audit records and the outcome of an audited operation.
package domain

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// GenericErrorMessage is returned to clients whenever an audited operation fails
// internally. The cause is logged, never returned.
const GenericErrorMessage = "The request could not be completed. Please contact your system administrator to resolve this issue."

// Audited operations.
const (
	OperationCredentialAccess = "credential_access"
	OperationCredentialUpdate = "credential_update"
	OperationCredentialDelete = "credential_delete"
	OperationKeyRotation      = "key_rotation"
)

// RequestContext describes who asked for an operation and how.
type RequestContext struct {
	RequestID    uuid.UUID
	Principal    string
	RequesterIP  string
	ForwardedFor string
	HostName     string
	Path         string
	Method       string
}

// AuditRecord is the durable trace of one audited operation. It is committed in the same
// transaction as the operation's effects.
type AuditRecord struct {
	ID           uuid.UUID
	RequestID    uuid.UUID
	Operation    string
	Principal    string
	RequesterIP  string
	ForwardedFor string
	HostName     string
	Path         string
	Method       string
	Success      bool
	StatusCode   int
	CreatedAt    time.Time
}

// Result is the outcome of a unit of work, expressed as an HTTP status and a response body.
type Result struct {
	StatusCode int
	Body       any
}

// Successful reports whether the status is below 300.
func (r Result) Successful() bool {
	return r.StatusCode < http.StatusMultipleChoices
}

// ErrorBody is the body of a generic failure.
type ErrorBody struct {
	Error string `json:"error"`
}

// InternalError is the result reported when the operation or its audit could not be
// committed.
func InternalError() Result {
	return Result{
		StatusCode: http.StatusInternalServerError,
		Body:       ErrorBody{Error: GenericErrorMessage},
	}
}
