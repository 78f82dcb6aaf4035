package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	companydomain "github.com/smallbiznis/quoteflow/internal/company/domain"
	quotationdomain "github.com/smallbiznis/quoteflow/internal/quotation/domain"
	settingsdomain "github.com/smallbiznis/quoteflow/internal/settings/domain"
	"github.com/smallbiznis/quoteflow/internal/validation"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string                  `json:"type"`
	Message string                  `json:"message"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request body")
}

func newValidationError(field, code, message string) error {
	var verrs validation.Errors
	verrs.Add(field, code, message)
	return verrs
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return internalError()
	}

	if verrs, ok := validation.AsErrors(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  verrs,
		}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, quotationdomain.ErrInvalidStatus):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []validation.FieldError{
				{Field: fieldForCode(err), Code: err.Error(), Message: "invalid value"},
			},
		}
	case errors.Is(err, quotationdomain.ErrCompanyNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "company_not_found",
			Message: "company not found",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, quotationdomain.ErrDuplicateNumber):
		return http.StatusConflict, errorPayload{
			Type:    "duplicate_quotation_number",
			Message: "quotation number already exists",
		}
	case errors.Is(err, quotationdomain.ErrStatusConflict):
		return http.StatusConflict, errorPayload{
			Type:    "status_conflict",
			Message: "quotation status changed since it was read",
		}
	case errors.Is(err, settingsdomain.ErrAllocationExhausted):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "could not allocate a quotation number",
		}
	case errors.Is(err, quotationdomain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "invalid_status_transition",
			Message: "status transition not allowed",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return internalError()
	}
}

func internalError() (int, errorPayload) {
	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Message: "internal server error",
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, companydomain.ErrNotFound),
		errors.Is(err, companydomain.ErrInvalidID),
		errors.Is(err, quotationdomain.ErrNotFound),
		errors.Is(err, quotationdomain.ErrInvalidID),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func fieldForCode(err error) string {
	if errors.Is(err, quotationdomain.ErrInvalidStatus) {
		return "status"
	}
	return "request"
}

// classifyErrorForLog returns the error type and code for request logs.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server", payload.Type
	default:
		return "client", payload.Type
	}
}
