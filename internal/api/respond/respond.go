// Package respond turns service errors into HTTP responses.
package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dealflow-api/internal/domain/billing"
)

// Status maps an error from the service layer to its HTTP status and the
// short reason shown to the caller.
func Status(err error) (int, string) {
	var ve *billing.ValidationError
	var ce *billing.ConflictError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Reason
	case errors.As(err, &ce):
		return http.StatusConflict, ce.Reason
	case errors.Is(err, billing.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, billing.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, billing.ErrInvalidPrice):
		return http.StatusBadRequest, "Invalid price for purpose"
	case errors.Is(err, billing.ErrInvalidCadence):
		return http.StatusBadRequest, "Invalid price cadence for purpose"
	case errors.Is(err, billing.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, billing.ErrPlanLimit):
		return http.StatusPaymentRequired, "Listing plan limit reached"
	case errors.Is(err, billing.ErrConflict):
		return http.StatusConflict, "Conflict"
	case errors.Is(err, billing.ErrUpstream):
		return http.StatusBadGateway, "Payment provider unavailable"
	case errors.Is(err, billing.ErrNotFound):
		return http.StatusNotFound, "Not found"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

// Error writes {"error": reason}. Upstream failures also say whether
// resubmitting the same request is safe.
func Error(c *gin.Context, err error) {
	status, reason := Status(err)
	_ = c.Error(err)
	body := gin.H{"error": reason}
	if errors.Is(err, billing.ErrUpstream) {
		body["retryable"] = billing.IsRetryable(err)
	}
	c.AbortWithStatusJSON(status, body)
}

// Text writes the reason as plain text, the format checkout clients expect.
func Text(c *gin.Context, err error) {
	status, reason := Status(err)
	_ = c.Error(err)
	if errors.Is(err, billing.ErrUpstream) && billing.IsRetryable(err) {
		c.Header("Retry-After", "1")
	}
	c.Abort()
	c.String(status, reason)
}
