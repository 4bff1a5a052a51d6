// Package http provides HTTP handlers for credential operations. Every handler runs inside
// an audited transaction: the operation and its audit record commit together.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/allisson/credstore/internal/audit/domain"
	auditHTTP "github.com/allisson/credstore/internal/audit/http"
	auditUseCase "github.com/allisson/credstore/internal/audit/usecase"
	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
	"github.com/allisson/credstore/internal/credentials/http/dto"
	credentialsUseCase "github.com/allisson/credstore/internal/credentials/usecase"
	"github.com/allisson/credstore/internal/httputil"
)

// CredentialHandler handles HTTP requests for credential operations.
type CredentialHandler struct {
	credentialUseCase credentialsUseCase.CredentialUseCase
	auditUseCase      auditUseCase.AuditUseCase
	principalHeader   string
	logger            *slog.Logger
}

// NewCredentialHandler creates a new credential handler with required dependencies.
func NewCredentialHandler(
	credentialUseCase credentialsUseCase.CredentialUseCase,
	auditUseCase auditUseCase.AuditUseCase,
	principalHeader string,
	logger *slog.Logger,
) *CredentialHandler {
	return &CredentialHandler{
		credentialUseCase: credentialUseCase,
		auditUseCase:      auditUseCase,
		principalHeader:   principalHeader,
		logger:            logger,
	}
}

func (h *CredentialHandler) perform(c *gin.Context, operation string, work auditUseCase.Work) {
	request := httputil.AuditRequest(c, h.principalHeader)
	result := h.auditUseCase.Perform(c.Request.Context(), operation, request, work)
	auditHTTP.Respond(c, result)
}

// GenerateHandler generates a credential or converges on the current version.
// POST /v1/data
// Returns 200 OK with the resulting version, whether new or kept.
func (h *CredentialHandler) GenerateHandler(c *gin.Context) {
	h.perform(c, auditDomain.OperationCredentialUpdate, func(ctx context.Context) (auditDomain.Result, error) {
		var req dto.GenerateCredentialRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return auditHTTP.BadRequest(err, h.logger)
		}
		if err := req.Validate(); err != nil {
			return auditHTTP.Invalid(err, h.logger)
		}

		version, err := h.credentialUseCase.GenerateOrConverge(ctx, req.ToInput())
		if err != nil {
			return auditHTTP.Failure(err, h.logger)
		}
		return auditHTTP.OK(dto.MapCredentialToResponse(version))
	})
}

// SetHandler stores a caller supplied value as a new version.
// PUT /v1/data
func (h *CredentialHandler) SetHandler(c *gin.Context) {
	h.perform(c, auditDomain.OperationCredentialUpdate, func(ctx context.Context) (auditDomain.Result, error) {
		var req dto.SetCredentialRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return auditHTTP.BadRequest(err, h.logger)
		}
		if err := req.Validate(); err != nil {
			return auditHTTP.Invalid(err, h.logger)
		}

		version, err := h.credentialUseCase.Set(ctx, req.ToInput())
		if err != nil {
			return auditHTTP.Failure(err, h.logger)
		}
		return auditHTTP.OK(dto.MapCredentialToResponse(version))
	})
}

// GetByNameHandler returns versions of a credential, newest first.
// GET /v1/data?name=/db/password[&current=true][&versions=N]
// current=true returns only the current version; versions=N the N most recent; neither
// returns every version.
func (h *CredentialHandler) GetByNameHandler(c *gin.Context) {
	h.perform(c, auditDomain.OperationCredentialAccess, func(ctx context.Context) (auditDomain.Result, error) {
		name := c.Query("name")
		if name == "" {
			return auditHTTP.Invalid(fmt.Errorf("name: cannot be blank"), h.logger)
		}

		current, err := parseBool(c.Query("current"))
		if err != nil {
			return auditHTTP.Invalid(fmt.Errorf("current: must be true or false"), h.logger)
		}
		versions, err := parseVersions(c.Query("versions"))
		if err != nil {
			return auditHTTP.Invalid(err, h.logger)
		}
		if current && versions > 0 {
			return auditHTTP.Invalid(fmt.Errorf("current and versions are mutually exclusive"), h.logger)
		}

		if current {
			version, err := h.credentialUseCase.Get(ctx, name)
			if err != nil {
				return auditHTTP.Failure(err, h.logger)
			}
			return auditHTTP.OK(dto.MapCredentialsToListResponse(
				[]*credentialsDomain.CredentialVersion{version},
			))
		}

		list, err := h.credentialUseCase.GetVersions(ctx, name, versions)
		if err != nil {
			return auditHTTP.Failure(err, h.logger)
		}
		return auditHTTP.OK(dto.MapCredentialsToListResponse(list))
	})
}

// GetByIDHandler returns a single version.
// GET /v1/data/:id
func (h *CredentialHandler) GetByIDHandler(c *gin.Context) {
	h.perform(c, auditDomain.OperationCredentialAccess, func(ctx context.Context) (auditDomain.Result, error) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			return auditHTTP.Invalid(fmt.Errorf("id: must be a valid UUID"), h.logger)
		}

		version, err := h.credentialUseCase.GetByID(ctx, id)
		if err != nil {
			return auditHTTP.Failure(err, h.logger)
		}
		return auditHTTP.OK(dto.MapCredentialToResponse(version))
	})
}

// DeleteHandler removes a credential and every version.
// DELETE /v1/data?name=/db/password
// Returns 204 No Content.
func (h *CredentialHandler) DeleteHandler(c *gin.Context) {
	h.perform(c, auditDomain.OperationCredentialDelete, func(ctx context.Context) (auditDomain.Result, error) {
		name := c.Query("name")
		if name == "" {
			return auditHTTP.Invalid(fmt.Errorf("name: cannot be blank"), h.logger)
		}

		if err := h.credentialUseCase.Delete(ctx, name); err != nil {
			return auditHTTP.Failure(err, h.logger)
		}
		return auditHTTP.NoContent()
	})
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func parseVersions(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	versions, err := strconv.Atoi(raw)
	if err != nil || versions < 1 {
		return 0, fmt.Errorf("versions: must be a positive integer")
	}
	return versions, nil
}
