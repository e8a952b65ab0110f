package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/knjiznica/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// actionFailure writes the {success, message} envelope used by lending
// and favorite actions.
func actionFailure(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]any{"success": false, "message": message})
}

// lendingFailure maps a store error to an HTTP status and a
// human-readable message. Unknown errors are reported as storage
// failures without leaking details.
func lendingFailure(w http.ResponseWriter, err error) {
	var status int
	var message string

	switch {
	case errors.Is(err, store.ErrNotFound):
		status, message = http.StatusNotFound, "not found"
	case errors.Is(err, store.ErrForbidden):
		status, message = http.StatusForbidden, "not allowed"
	case errors.Is(err, store.ErrOutOfStock):
		status, message = http.StatusConflict, "no copies of this book are available"
	case errors.Is(err, store.ErrBookUnavailable):
		status, message = http.StatusConflict, "this book is not available for lending"
	case errors.Is(err, store.ErrDuplicateLoan):
		status, message = http.StatusConflict, "you already have this book on loan"
	case errors.Is(err, store.ErrBorrowLimit):
		status, message = http.StatusConflict, "you have reached the borrowing limit"
	case errors.Is(err, store.ErrRenewLimit):
		status, message = http.StatusConflict, "this loan has reached the renewal limit"
	case errors.Is(err, store.ErrLoanOverdue):
		status, message = http.StatusConflict, "an overdue loan cannot be renewed"
	case errors.Is(err, store.ErrAlreadyClosed):
		status, message = http.StatusConflict, "this loan is already closed"
	case errors.Is(err, store.ErrNotPending):
		status, message = http.StatusConflict, "this loan is not awaiting approval"
	case errors.Is(err, store.ErrLoanNotActive):
		status, message = http.StatusConflict, "this loan has not been approved yet"
	case errors.Is(err, store.ErrNothingDue):
		status, message = http.StatusConflict, "there is no fine to pay on this loan"
	default:
		slog.Error("lending operation failed", "error", err)
		status, message = http.StatusInternalServerError, "internal error"
	}

	actionFailure(w, status, message)
}
