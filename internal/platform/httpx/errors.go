package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-sales/internal/shared"
)

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrDuplicate),
		errors.Is(err, shared.ErrProductNotFound),
		errors.Is(err, shared.ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrInvalidCredentials), errors.Is(err, shared.ErrTokenMissing):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrTokenInvalid):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrIdempotencyConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as a failed envelope. Unmapped errors are logged and
// answered with fallback so store details stay server side.
func RespondError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error(fallback, slog.Any("error", err), slog.String("request_id", RequestID(r)), slog.String("path", r.URL.Path))
		}
		if fallback == "" {
			fallback = http.StatusText(status)
		}
		Fail(w, r, status, fallback)
		return
	}
	Fail(w, r, status, shared.UserSafeMessage(err))
}
