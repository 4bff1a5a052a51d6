// Package http provides HTTP handlers for encryption key administration.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/allisson/credstore/internal/audit/domain"
	auditHTTP "github.com/allisson/credstore/internal/audit/http"
	auditUseCase "github.com/allisson/credstore/internal/audit/usecase"
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	"github.com/allisson/credstore/internal/encryption/http/dto"
	encryptionUseCase "github.com/allisson/credstore/internal/encryption/usecase"
	apperrors "github.com/allisson/credstore/internal/errors"
	"github.com/allisson/credstore/internal/httputil"
)

// KeyHandler handles HTTP requests for encryption key administration.
type KeyHandler struct {
	keySetUseCase   encryptionUseCase.KeySetUseCase
	rotatorUseCase  encryptionUseCase.RotatorUseCase
	auditUseCase    auditUseCase.AuditUseCase
	batchSize       int
	principalHeader string
	logger          *slog.Logger
}

// NewKeyHandler creates a new key handler with required dependencies.
func NewKeyHandler(
	keySetUseCase encryptionUseCase.KeySetUseCase,
	rotatorUseCase encryptionUseCase.RotatorUseCase,
	auditUseCase auditUseCase.AuditUseCase,
	batchSize int,
	principalHeader string,
	logger *slog.Logger,
) *KeyHandler {
	return &KeyHandler{
		keySetUseCase:   keySetUseCase,
		rotatorUseCase:  rotatorUseCase,
		auditUseCase:    auditUseCase,
		batchSize:       batchSize,
		principalHeader: principalHeader,
		logger:          logger,
	}
}

// ListHandler lists the keys of the installed key set.
// GET /v1/keys
func (h *KeyHandler) ListHandler(c *gin.Context) {
	set := h.keySetUseCase.Current()
	if set == nil {
		httputil.HandleErrorGin(c, encryptionDomain.ErrNoActiveKey, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.MapKeySetToListResponse(set))
}

// RotateHandler makes a key the only active key and re-encrypts stored values under it.
// POST /v1/keys/rotate
//
// The key set swap and the re-encryption batches commit on their own; the audit record is
// written once they finish, successful or not.
func (h *KeyHandler) RotateHandler(c *gin.Context) {
	result := h.rotate(c)
	request := httputil.AuditRequest(c, h.principalHeader)
	result = h.auditUseCase.Perform(
		c.Request.Context(),
		auditDomain.OperationKeyRotation,
		request,
		func(context.Context) (auditDomain.Result, error) { return result, nil },
	)
	auditHTTP.Respond(c, result)
}

func (h *KeyHandler) rotate(c *gin.Context) auditDomain.Result {
	var req dto.RotateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		result, _ := auditHTTP.BadRequest(err, h.logger)
		return result
	}
	if err := req.Validate(); err != nil {
		result, _ := auditHTTP.Invalid(err, h.logger)
		return result
	}

	metadata, err := h.metadata(&req)
	if err != nil {
		return h.failure(err)
	}

	ctx := c.Request.Context()
	if err := h.keySetUseCase.RotateActiveKey(ctx, metadata); err != nil {
		return h.failure(err)
	}
	rotation, err := h.rotatorUseCase.Rotate(ctx, h.batchSize)
	if err != nil {
		return h.failure(err)
	}

	result, _ := auditHTTP.OK(dto.MapRotationToResponse(h.keySetUseCase.Current().Active(), rotation))
	return result
}

// metadata resolves the key named by req, from the request itself or from configuration.
func (h *KeyHandler) metadata(req *dto.RotateKeyRequest) (encryptionDomain.KeyMetadata, error) {
	if req.DeclaresKey() {
		return req.ToMetadata(), nil
	}
	if cfg := h.keySetUseCase.Config(); cfg != nil {
		for _, key := range cfg.Keys() {
			if key.Name == req.Name {
				key.Active = true
				return key, nil
			}
		}
	}
	return encryptionDomain.KeyMetadata{}, apperrors.Wrapf(
		apperrors.ErrNotFound,
		"encryption key %s is not configured",
		req.Name,
	)
}

// failure maps rotation errors. Configuration errors caused by the request are rejected
// with 422; the previous key set stays installed.
func (h *KeyHandler) failure(err error) auditDomain.Result {
	if apperrors.Is(err, apperrors.ErrConfiguration) && !apperrors.Is(err, encryptionDomain.ErrProviderUnavailable) {
		h.logger.Warn("key rotation rejected", slog.Any("error", err))
		return auditDomain.Result{
			StatusCode: http.StatusUnprocessableEntity,
			Body:       httputil.ValidationError(fmt.Errorf("key rotation rejected: %w", err)),
		}
	}
	result, err := auditHTTP.Failure(err, h.logger)
	if err != nil {
		h.logger.Error("key rotation failed", slog.Any("error", err))
		return auditDomain.InternalError()
	}
	return result
}
