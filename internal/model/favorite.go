package model

import "time"

// Favorite represents a user's bookmark of a book. The (user, book) pair
// is unique; toggling flips IsActive instead of deleting the row, so the
// note and creation time survive un-favoriting.
type Favorite struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	BookID    int64     `json:"book_id"`
	Note      string    `json:"note,omitempty"`
	SortOrder int       `json:"sort_order"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	BookTitle     string `json:"book_title,omitempty"`
	BookAuthor    string `json:"book_author,omitempty"`
	BookAvailable bool   `json:"book_available,omitempty"`
}
