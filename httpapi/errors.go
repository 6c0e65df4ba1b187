package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexcrm/lexcrm/auth"
	"github.com/lexcrm/lexcrm/crm"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps the service error taxonomy onto HTTP statuses.
// Authentication failures are 401, authorization failures 403; the two are
// never conflated.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal"
	message := "internal error"

	switch {
	case errors.Is(err, auth.ErrValidationFailed):
		status, code, message = http.StatusUnprocessableEntity, "validation_failed", err.Error()
	case errors.Is(err, auth.ErrDuplicateIdentity):
		status, code, message = http.StatusConflict, "duplicate_identity", err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, code, message = http.StatusUnauthorized, "invalid_credentials", err.Error()
	case errors.Is(err, auth.ErrTwoFactorRequired):
		status, code, message = http.StatusUnauthorized, "two_factor_required", err.Error()
	case errors.Is(err, auth.ErrTwoFactorInvalid):
		status, code, message = http.StatusUnauthorized, "two_factor_invalid", err.Error()
	case errors.Is(err, auth.ErrAccountInactive):
		status, code, message = http.StatusLocked, "account_inactive", err.Error()
	case errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenRevoked):
		status, code, message = http.StatusUnauthorized, "invalid_token", err.Error()
	case errors.Is(err, auth.ErrPermissionDenied):
		status, code, message = http.StatusForbidden, "permission_denied", err.Error()
	case errors.Is(err, auth.ErrRateLimited):
		status, code, message = http.StatusTooManyRequests, "rate_limited", err.Error()
	case errors.Is(err, auth.ErrResetCodeInvalid):
		status, code, message = http.StatusUnprocessableEntity, "code_invalid", err.Error()
	case errors.Is(err, crm.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, crm.ErrValidationFailed):
		status, code, message = http.StatusUnprocessableEntity, "validation_failed", err.Error()
	}

	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Code: code, Message: message}})
}
