// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	auditDomain "github.com/allisson/credstore/internal/audit/domain"
)

// AuditRecordResponse represents an audit record in API responses.
type AuditRecordResponse struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id"`
	Operation    string    `json:"operation"`
	Principal    string    `json:"principal,omitempty"`
	RequesterIP  string    `json:"requester_ip"`
	ForwardedFor string    `json:"forwarded_for,omitempty"`
	HostName     string    `json:"host_name"`
	Path         string    `json:"path"`
	Method       string    `json:"method"`
	Success      bool      `json:"success"`
	StatusCode   int       `json:"status_code"`
	CreatedAt    time.Time `json:"created_at"`
}

// MapAuditRecordToResponse converts a domain audit record to an API response.
func MapAuditRecordToResponse(record *auditDomain.AuditRecord) AuditRecordResponse {
	return AuditRecordResponse{
		ID:           record.ID.String(),
		RequestID:    record.RequestID.String(),
		Operation:    record.Operation,
		Principal:    record.Principal,
		RequesterIP:  record.RequesterIP,
		ForwardedFor: record.ForwardedFor,
		HostName:     record.HostName,
		Path:         record.Path,
		Method:       record.Method,
		Success:      record.Success,
		StatusCode:   record.StatusCode,
		CreatedAt:    record.CreatedAt,
	}
}

// ListAuditRecordsResponse represents a paginated list of audit records in API responses.
type ListAuditRecordsResponse struct {
	Data []AuditRecordResponse `json:"data"`
}

// MapAuditRecordsToListResponse converts domain audit records to a list API response.
func MapAuditRecordsToListResponse(records []*auditDomain.AuditRecord) ListAuditRecordsResponse {
	data := make([]AuditRecordResponse, 0, len(records))
	for _, record := range records {
		data = append(data, MapAuditRecordToResponse(record))
	}
	return ListAuditRecordsResponse{Data: data}
}
