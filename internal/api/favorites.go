package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// FavoritesHandler handles the per-user favorites list.
type FavoritesHandler struct {
	DB *sql.DB
}

type toggleFavoriteResponse struct {
	Success    bool   `json:"success"`
	IsFavorite bool   `json:"is_favorite"`
	Message    string `json:"message"`
}

type favoriteNoteRequest struct {
	Note string `json:"note"`
}

type favoritesPage struct {
	Favorites []model.Favorite `json:"favorites"`
	Total     int              `json:"total"`
	Page      int              `json:"page"`
	PageSize  int              `json:"page_size"`
}

// Toggle handles POST /api/books/{id}/favorite. Toggling an existing
// favorite off keeps the row so the note survives a re-add.
func (h *FavoritesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	bookID, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	active, err := store.ToggleFavorite(r.Context(), h.DB, claims.UserID, bookID)
	if err != nil {
		lendingFailure(w, err)
		return
	}

	msg := "removed from favorites"
	if active {
		msg = "added to favorites"
	}

	jsonResponse(w, http.StatusOK, toggleFavoriteResponse{
		Success:    true,
		IsFavorite: active,
		Message:    msg,
	})
}

// List handles GET /api/favorites with page/page_size query parameters.
func (h *FavoritesHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	favorites, err := store.ListFavorites(r.Context(), h.DB, claims.UserID, page, pageSize)
	if err != nil {
		slog.Error("failed to list favorites", "error", err, "user", claims.UserID)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	total, err := store.CountFavorites(r.Context(), h.DB, claims.UserID)
	if err != nil {
		slog.Error("failed to count favorites", "error", err, "user", claims.UserID)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResponse(w, http.StatusOK, favoritesPage{
		Favorites: favorites,
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
	})
}

// SetNote handles PUT /api/books/{id}/favorite/note.
func (h *FavoritesHandler) SetNote(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	bookID, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	var req favoriteNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Note) > 1000 {
		jsonError(w, http.StatusBadRequest, "note too long")
		return
	}

	if err := store.SetFavoriteNote(r.Context(), h.DB, claims.UserID, bookID, req.Note); err != nil {
		lendingFailure(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "note updated"})
}
