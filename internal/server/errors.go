package server

import (
	"errors"
	"net/http"

	payoutdomain "github.com/DeveloperTWH/crownstandard-backend/internal/payout/domain"
	"github.com/gin-gonic/gin"
)

// APIError is the wire shape for every non-2xx response.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return e.Code }

var (
	ErrNotFound = &APIError{Status: http.StatusNotFound, Code: "not_found", Message: "resource not found"}
	ErrInvalid  = &APIError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "invalid request"}
	ErrConflict = &APIError{Status: http.StatusConflict, Code: "invalid_state", Message: "operation not allowed in the current state"}
	ErrInternal = &APIError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal error"}
)

// AbortWithError maps domain errors onto API responses. Unknown errors
// become an opaque 500; the details stay in the logs.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, apiErr)
		return
	}

	switch {
	case errors.Is(err, payoutdomain.ErrPayoutNotFound):
		c.AbortWithStatusJSON(ErrNotFound.Status, ErrNotFound)
	case errors.Is(err, payoutdomain.ErrInvalidState):
		c.AbortWithStatusJSON(ErrConflict.Status, ErrConflict)
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(ErrInternal.Status, ErrInternal)
	}
}
