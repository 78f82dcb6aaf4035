package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	quotationdomain "github.com/smallbiznis/quoteflow/internal/quotation/domain"
)

const dateOnlyLayout = "2006-01-02"

var errInvalidTime = errors.New("invalid_time")

// parseOptionalTime accepts RFC3339 or a bare date. Bare dates are taken
// as UTC midnight.
func parseOptionalTime(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		parsed = parsed.UTC()
		return &parsed, nil
	}
	if parsed, err := time.Parse(dateOnlyLayout, trimmed); err == nil {
		parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
		return &parsed, nil
	}
	return nil, errInvalidTime
}

// parseTimeField parses value and reports a field error on failure.
func parseTimeField(field, value string) (*time.Time, error) {
	parsed, err := parseOptionalTime(value)
	if err != nil {
		return nil, newValidationError(field, "invalid_date", field+" must be a date (YYYY-MM-DD) or RFC3339 timestamp")
	}
	return parsed, nil
}

// quotationListFilter reads ?company_id= and the free-text ?q=.
func quotationListFilter(c *gin.Context) quotationdomain.ListFilter {
	return quotationdomain.ListFilter{
		CompanyID: strings.TrimSpace(c.Query("company_id")),
		Search:    strings.TrimSpace(c.Query("q")),
	}
}
