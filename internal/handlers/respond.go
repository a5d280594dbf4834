package handlers

import (
	"errors"
	"net/http"

	"dinetrack/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// respondError maps the error taxonomy onto HTTP status codes.
// Invalid transitions and concurrency/uniqueness violations both come
// back as 409 so clients re-fetch before retrying the business
// operation; unavailability is 503 with the service-specific message.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindClientError, apperrors.KindPreconditionFailed:
		status = http.StatusBadRequest
	case apperrors.KindInvalidTransition, apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindServiceUnavailable, apperrors.KindTimeout:
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{"error": appErr.Message})
}
