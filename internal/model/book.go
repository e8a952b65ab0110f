package model

import "time"

// Book represents a catalog title. Copies are tracked as counters:
// AvailableCopies counts copies not currently on loan and never exceeds
// TotalCopies.
type Book struct {
	ID              int64     `json:"id"`
	ISBN            string    `json:"isbn"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Publisher       string    `json:"publisher,omitempty"`
	Description     string    `json:"description,omitempty"`
	CoverMime       string    `json:"cover_mime,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Book statuses.
const (
	BookStatusActive      = "active"
	BookStatusWithdrawn   = "withdrawn"
	BookStatusMaintenance = "maintenance"
)

// IsBorrowable reports whether a copy of the book can be checked out.
func (b *Book) IsBorrowable() bool {
	return b.Status == BookStatusActive && b.AvailableCopies > 0
}

// BorrowedCount returns the number of copies currently on loan.
func (b *Book) BorrowedCount() int {
	return b.TotalCopies - b.AvailableCopies
}

// ValidBookStatus reports whether s is a known book status.
func ValidBookStatus(s string) bool {
	switch s {
	case BookStatusActive, BookStatusWithdrawn, BookStatusMaintenance:
		return true
	}
	return false
}
