package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gotrs-io/gotrs-helpdesk/internal/middleware"
	"github.com/gotrs-io/gotrs-helpdesk/internal/repository"
	"github.com/gotrs-io/gotrs-helpdesk/internal/sequence"
	"github.com/gotrs-io/gotrs-helpdesk/internal/tickets"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, tickets.ErrValidation), errors.Is(err, sequence.ErrInvalidSequenceName):
		return http.StatusBadRequest
	case errors.Is(err, tickets.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicateTicketNumber):
		return http.StatusConflict
	case errors.Is(err, sequence.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sendError writes the error body. Internal details are only returned for
// client errors.
func (r *Router) sendError(c *gin.Context, message string, err error) {
	code := statusFor(err)
	body := gin.H{"message": message, "request_id": middleware.GetRequestID(c)}
	switch {
	case code < http.StatusInternalServerError:
		body["error"] = err.Error()
	case code == http.StatusServiceUnavailable:
		body["error"] = "storage temporarily unavailable, please retry"
		c.Header("Retry-After", "1")
	default:
		body["error"] = "internal error"
	}
	if code >= http.StatusInternalServerError {
		r.logger.Printf("❌ %s [%s]: %v", message, middleware.GetRequestID(c), err)
	}
	c.JSON(code, body)
}
