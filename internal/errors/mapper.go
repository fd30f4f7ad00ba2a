package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"
)

// Map converts service/repo errors into an HTTP status plus a
// machine-readable code and operator-facing message. Keeps handlers free of
// per-error switch statements.
func Map(err error) (status int, code string, msg string) {
	var invalid *InvalidActionError
	var partial *PartialMigrationError

	switch {
	case err == nil:
		return http.StatusOK, "", ""

	case errors.As(err, &invalid):
		return http.StatusBadRequest, "invalid_action", invalid.Reason

	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, "not_found", "record not found"

	case errors.As(err, &partial):
		return http.StatusInternalServerError, "partial_migration", partial.Error()

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", "request timed out"

	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "canceled", "request was canceled"

	default:
		// includes PersistenceError: transient, caller may retry with backoff
		return http.StatusInternalServerError, "internal", err.Error()
	}
}
