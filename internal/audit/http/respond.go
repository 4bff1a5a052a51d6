// Package http provides HTTP handlers for the audit trail and the helpers every audited
// handler uses to turn use case outcomes into audited results.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/allisson/credstore/internal/audit/domain"
	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	apperrors "github.com/allisson/credstore/internal/errors"
	"github.com/allisson/credstore/internal/httputil"
)

// OK is a 200 result.
func OK(body any) (auditDomain.Result, error) {
	return auditDomain.Result{StatusCode: http.StatusOK, Body: body}, nil
}

// NoContent is a 204 result.
func NoContent() (auditDomain.Result, error) {
	return auditDomain.Result{StatusCode: http.StatusNoContent}, nil
}

// BadRequest is the result of a malformed request body or parameter.
func BadRequest(err error, logger *slog.Logger) (auditDomain.Result, error) {
	logger.Warn("bad request", slog.Any("error", err))
	return auditDomain.Result{StatusCode: http.StatusBadRequest, Body: httputil.BadRequest(err)}, nil
}

// Invalid is the result of a request that failed DTO validation.
func Invalid(err error, logger *slog.Logger) (auditDomain.Result, error) {
	logger.Warn("validation failed", slog.Any("error", err))
	return auditDomain.Result{
		StatusCode: http.StatusUnprocessableEntity,
		Body:       httputil.ValidationError(err),
	}, nil
}

// Failure converts a use case error to an audited result.
//
// Client errors, unreachable providers and values under unconfigured keys become non-2xx
// results that are committed with their audit record. Any other error is returned as is,
// which rolls the transaction back and yields the generic error result.
func Failure(err error, logger *slog.Logger) (auditDomain.Result, error) {
	status, body := httputil.ErrorStatus(err)

	switch {
	case status < http.StatusInternalServerError:
		logger.Warn("request rejected", slog.Int("status_code", status), slog.Any("error", err))
		return auditDomain.Result{StatusCode: status, Body: body}, nil

	case apperrors.Is(err, encryptionDomain.ErrKeyNotFound):
		logger.Error("value is encrypted by an unconfigured key", slog.Any("error", err))
		return auditDomain.InternalError(), nil

	case apperrors.Is(err, encryptionDomain.ErrProviderUnavailable):
		logger.Error("encryption provider unavailable", slog.Any("error", err))
		return auditDomain.Result{StatusCode: status, Body: body}, nil

	default:
		return auditDomain.Result{}, err
	}
}

// Respond writes result to c.
func Respond(c *gin.Context, result auditDomain.Result) {
	if result.Body == nil {
		c.Status(result.StatusCode)
		return
	}
	c.JSON(result.StatusCode, result.Body)
}
