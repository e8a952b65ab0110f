package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/knjiznica/internal/model"
)

// ToggleFavorite flips a user's favorite state for a book and returns the
// new state. The first toggle creates the row; later toggles flip
// is_active so the note and creation time are kept.
func ToggleFavorite(ctx context.Context, db *sql.DB, userID, bookID int64) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var bookExists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM books WHERE id = ?`, bookID,
	).Scan(&bookExists)
	if err != nil {
		return false, fmt.Errorf("checking book: %w", err)
	}
	if bookExists == 0 {
		return false, ErrNotFound
	}

	var active bool
	err = tx.QueryRowContext(ctx,
		`SELECT is_active FROM favorites WHERE user_id = ? AND book_id = ?`,
		userID, bookID,
	).Scan(&active)

	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO favorites (user_id, book_id, is_active) VALUES (?, ?, 1)`,
			userID, bookID,
		)
		active = true
	case err != nil:
		return false, fmt.Errorf("checking favorite: %w", err)
	default:
		active = !active
		_, err = tx.ExecContext(ctx,
			`UPDATE favorites SET is_active = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE user_id = ? AND book_id = ?`,
			active, userID, bookID,
		)
	}
	if err != nil {
		return false, fmt.Errorf("toggling favorite: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing favorite toggle: %w", err)
	}
	return active, nil
}

// IsFavorited reports whether the user has the book as an active favorite.
func IsFavorited(ctx context.Context, db *sql.DB, userID, bookID int64) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM favorites WHERE user_id = ? AND book_id = ? AND is_active = 1`,
		userID, bookID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking favorite: %w", err)
	}
	return n > 0, nil
}

// SetFavoriteNote sets the note on a user's active favorite.
func SetFavoriteNote(ctx context.Context, db *sql.DB, userID, bookID int64, note string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE favorites SET note = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND book_id = ? AND is_active = 1`,
		note, userID, bookID,
	)
	if err != nil {
		return fmt.Errorf("setting favorite note: %w", err)
	}
	return requireRow(result)
}

// ListFavorites returns one page of the user's active favorites, ordered
// by sort order and then recency. Page numbering starts at 1.
func ListFavorites(ctx context.Context, db *sql.DB, userID int64, page, pageSize int) ([]model.Favorite, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	rows, err := db.QueryContext(ctx,
		`SELECT f.id, f.user_id, f.book_id, f.note, f.sort_order, f.is_active,
		        f.created_at, f.updated_at,
		        b.title, b.author, b.status, b.available_copies
		 FROM favorites f
		 JOIN books b ON b.id = f.book_id
		 WHERE f.user_id = ? AND f.is_active = 1
		 ORDER BY f.sort_order DESC, f.created_at DESC
		 LIMIT ? OFFSET ?`,
		userID, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer rows.Close()

	var favorites []model.Favorite
	for rows.Next() {
		var f model.Favorite
		var note sql.NullString
		var bookStatus string
		var available int
		if err := rows.Scan(&f.ID, &f.UserID, &f.BookID, &note, &f.SortOrder, &f.IsActive,
			&f.CreatedAt, &f.UpdatedAt, &f.BookTitle, &f.BookAuthor, &bookStatus, &available); err != nil {
			return nil, fmt.Errorf("scanning favorite: %w", err)
		}
		f.Note = note.String
		f.BookAvailable = bookStatus == model.BookStatusActive && available > 0
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// CountFavorites returns the number of the user's active favorites.
func CountFavorites(ctx context.Context, db *sql.DB, userID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM favorites WHERE user_id = ? AND is_active = 1`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting favorites: %w", err)
	}
	return n, nil
}
