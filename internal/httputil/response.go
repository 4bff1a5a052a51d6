// Package httputil holds the gin helpers shared by the credential, key and audit handlers.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	apperrors "github.com/allisson/credstore/internal/errors"
)

// ErrorResponse represents a structured error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// ErrorStatus maps a domain error to its HTTP status code and client facing body.
// Unknown errors map to 500 without exposing their details.
func ErrorStatus(err error) (int, ErrorResponse) {
	switch {
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "The requested resource was not found",
		}

	case apperrors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, ErrorResponse{
			Error:   "conflict",
			Message: "A conflict occurred with existing data",
		}

	case apperrors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "invalid_input",
			Message: err.Error(),
		}

	case apperrors.Is(err, encryptionDomain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{
			Error:   "provider_unavailable",
			Message: "The encryption provider is unavailable",
		}

	default:
		return http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		}
	}
}

// IsClientError reports whether err maps to a 4xx status.
func IsClientError(err error) bool {
	status, _ := ErrorStatus(err)
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError
}

// HandleErrorGin writes the response ErrorStatus maps err to. The full error chain is only
// logged, at warn level for client errors.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode, errorResponse := ErrorStatus(err)

	if logger != nil {
		level := slog.LevelError
		if statusCode < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.LogAttrs(c, level, "request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, errorResponse)
}

// HandleBadRequestGin writes a 400 Bad Request response for malformed JSON or parameters using Gin.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, BadRequest(err))
}

// HandleValidationErrorGin writes a 422 Unprocessable Entity response for validation errors using Gin.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	c.JSON(http.StatusUnprocessableEntity, ValidationError(err))
}

// BadRequest is the body of a 400 response.
func BadRequest(err error) ErrorResponse {
	return ErrorResponse{
		Error:   "bad_request",
		Message: err.Error(),
	}
}

// ValidationError is the body of a 422 response for a rejected request.
func ValidationError(err error) ErrorResponse {
	return ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	}
}
