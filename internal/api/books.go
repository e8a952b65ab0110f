package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/knjiznica/internal/imaging"
	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// BooksHandler handles catalog endpoints.
type BooksHandler struct {
	DB *sql.DB
}

type bookRequest struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Publisher   string `json:"publisher"`
	Description string `json:"description"`
	TotalCopies int    `json:"total_copies"`
}

type bookStatusRequest struct {
	Status string `json:"status"`
}

type bookCopiesRequest struct {
	TotalCopies int `json:"total_copies"`
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// List handles GET /api/books.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidBookStatus(status) {
		jsonError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	books, err := store.ListBooks(r.Context(), h.DB, search, status)
	if err != nil {
		slog.Error("failed to list books", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResponse(w, http.StatusOK, books)
}

// Get handles GET /api/books/{id}.
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	jsonResponse(w, http.StatusOK, book)
}

// Create handles POST /api/books.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	if req.Title == "" || req.Author == "" {
		jsonError(w, http.StatusBadRequest, "title and author required")
		return
	}
	if req.TotalCopies < 0 {
		jsonError(w, http.StatusBadRequest, "total copies cannot be negative")
		return
	}

	created, err := store.CreateBook(r.Context(), h.DB, strings.TrimSpace(req.ISBN),
		req.Title, req.Author, req.Publisher, req.Description, req.TotalCopies)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			jsonError(w, http.StatusConflict, err.Error())
			return
		}
		slog.Error("failed to create book", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create book")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("book created", "book", created.Title, "copies", created.TotalCopies, "by", claims.Username)
	jsonResponse(w, http.StatusCreated, created)
}

// Update handles PUT /api/books/{id}. Copy counts are updated separately
// so that description edits cannot race the lending bookkeeping.
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	if req.Title == "" || req.Author == "" {
		jsonError(w, http.StatusBadRequest, "title and author required")
		return
	}

	if err := store.UpdateBook(r.Context(), h.DB, id, req.Title, req.Author, req.Publisher, req.Description); err != nil {
		lendingFailure(w, err)
		return
	}

	updated, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil || updated == nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResponse(w, http.StatusOK, updated)
}

// SetStatus handles PUT /api/books/{id}/status.
func (h *BooksHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	var req bookStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidBookStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := store.SetBookStatus(r.Context(), h.DB, id, req.Status); err != nil {
		lendingFailure(w, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("book status changed", "book", id, "status", req.Status, "by", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "status updated"})
}

// SetCopies handles PUT /api/books/{id}/copies.
func (h *BooksHandler) SetCopies(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	var req bookCopiesRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TotalCopies < 0 {
		jsonError(w, http.StatusBadRequest, "total copies cannot be negative")
		return
	}

	if err := store.SetBookCopies(r.Context(), h.DB, id, req.TotalCopies); err != nil {
		lendingFailure(w, err)
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil || book == nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResponse(w, http.StatusOK, book)
}

// Delete handles DELETE /api/books/{id}.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	if err := store.DeleteBook(r.Context(), h.DB, id); err != nil {
		lendingFailure(w, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("book deleted", "book", id, "by", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "book deleted"})
}

// UploadCover handles PUT /api/books/{id}/cover.
func (h *BooksHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	cover, err := imaging.ProcessCover(r.Body)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetBookCover(r.Context(), h.DB, id, cover.Data, cover.MIME); err != nil {
		lendingFailure(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "cover updated"})
}

// GetCover handles GET /api/books/{id}/cover.
func (h *BooksHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	data, mime, err := store.GetBookCover(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(data) == 0 {
		jsonError(w, http.StatusNotFound, "no cover")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write cover", "error", err)
	}
}

// ListLoans handles GET /api/books/{id}/loans, the per-title circulation
// history for librarians.
func (h *BooksHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	loans, err := store.ListLoansForBook(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to list loans for book", "error", err, "book", id)
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResponse(w, http.StatusOK, loans)
}
