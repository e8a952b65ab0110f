package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// UsersHandler handles member administration endpoints.
type UsersHandler struct {
	DB *sql.DB
}

type userStatusRequest struct {
	Status string `json:"status"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidUserStatus(status) {
		jsonError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	users, err := store.ListUsers(r.Context(), h.DB, search, status)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResponse(w, http.StatusOK, users)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	jsonResponse(w, http.StatusOK, user)
}

// ListLoans handles GET /api/users/{id}/loans, the per-member borrowing
// history for librarians.
func (h *UsersHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, "user not found")
		return
	}

	loans, err := store.ListLoansForUser(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to list loans for user", "error", err, "user", id)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResponse(w, http.StatusOK, loans)
}

// SetStatus handles PUT /api/users/{id}/status. Admins use this to
// approve pending registrations and to disable accounts.
func (h *UsersHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if id == claims.UserID {
		jsonError(w, http.StatusBadRequest, "cannot change own status")
		return
	}

	var req userStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidUserStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := store.SetUserStatus(r.Context(), h.DB, id, req.Status); err != nil {
		lendingFailure(w, err)
		return
	}

	slog.Info("user status changed", "user", id, "status", req.Status, "by", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "status updated"})
}

// Delete handles DELETE /api/users/{id}. The account is soft-deleted so
// the loan ledger keeps its history.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if id == claims.UserID {
		jsonError(w, http.StatusBadRequest, "cannot delete own account")
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		lendingFailure(w, err)
		return
	}

	slog.Info("user deleted", "user", id, "by", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "user deleted"})
}
