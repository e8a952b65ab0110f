package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/knjiznica/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, policy model.Policy) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, Policy: policy}
	usersHandler := &UsersHandler{DB: db}
	booksHandler := &BooksHandler{DB: db}
	loansHandler := &LoansHandler{DB: db, Policy: policy}
	favoritesHandler := &FavoritesHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireLibrarian := RequireRole(model.RoleLibrarian)

	// Public: registration and login.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Books: read (all members), write (librarian+).
	mux.Handle("GET /api/books", authMW(http.HandlerFunc(booksHandler.List)))
	mux.Handle("POST /api/books", authMW(requireLibrarian(http.HandlerFunc(booksHandler.Create))))
	mux.Handle("GET /api/books/{id}", authMW(http.HandlerFunc(booksHandler.Get)))
	mux.Handle("PUT /api/books/{id}", authMW(requireLibrarian(http.HandlerFunc(booksHandler.Update))))
	mux.Handle("DELETE /api/books/{id}", authMW(requireLibrarian(http.HandlerFunc(booksHandler.Delete))))
	mux.Handle("PUT /api/books/{id}/status", authMW(requireLibrarian(http.HandlerFunc(booksHandler.SetStatus))))
	mux.Handle("PUT /api/books/{id}/copies", authMW(requireLibrarian(http.HandlerFunc(booksHandler.SetCopies))))
	mux.Handle("PUT /api/books/{id}/cover", authMW(requireLibrarian(http.HandlerFunc(booksHandler.UploadCover))))
	mux.Handle("GET /api/books/{id}/cover", authMW(http.HandlerFunc(booksHandler.GetCover)))
	mux.Handle("GET /api/books/{id}/loans", authMW(requireLibrarian(http.HandlerFunc(booksHandler.ListLoans))))

	// Favorites (own list only).
	mux.Handle("POST /api/books/{id}/favorite", authMW(http.HandlerFunc(favoritesHandler.Toggle)))
	mux.Handle("PUT /api/books/{id}/favorite/note", authMW(http.HandlerFunc(favoritesHandler.SetNote)))
	mux.Handle("GET /api/favorites", authMW(http.HandlerFunc(favoritesHandler.List)))

	// Loans: members act on their own loans, librarians run approvals.
	mux.Handle("POST /api/loans", authMW(http.HandlerFunc(loansHandler.Borrow)))
	mux.Handle("GET /api/loans", authMW(http.HandlerFunc(loansHandler.ListMine)))
	mux.Handle("GET /api/loans/active", authMW(http.HandlerFunc(loansHandler.ListOpen)))
	mux.Handle("GET /api/loans/pending", authMW(requireLibrarian(http.HandlerFunc(loansHandler.ListPending))))
	mux.Handle("GET /api/loans/{id}", authMW(http.HandlerFunc(loansHandler.Get)))
	mux.Handle("POST /api/loans/{id}/renew", authMW(http.HandlerFunc(loansHandler.Renew)))
	mux.Handle("POST /api/loans/{id}/return", authMW(http.HandlerFunc(loansHandler.Return)))
	mux.Handle("POST /api/loans/{id}/fine", authMW(http.HandlerFunc(loansHandler.PayFine)))
	mux.Handle("POST /api/loans/{id}/approve", authMW(requireLibrarian(http.HandlerFunc(loansHandler.Approve))))
	mux.Handle("POST /api/loans/{id}/reject", authMW(requireLibrarian(http.HandlerFunc(loansHandler.Reject))))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("GET /api/users/{id}/loans", authMW(requireLibrarian(http.HandlerFunc(usersHandler.ListLoans))))
	mux.Handle("PUT /api/users/{id}/status", authMW(requireAdmin(http.HandlerFunc(usersHandler.SetStatus))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	return mux
}
