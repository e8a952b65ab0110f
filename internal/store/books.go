package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/knjiznica/internal/model"
)

const bookColumns = `id, isbn, title, author, publisher, description, cover_mime,
	 total_copies, available_copies, status, created_at, updated_at`

// CreateBook adds a title to the catalog. All copies start available.
func CreateBook(ctx context.Context, db *sql.DB, isbn, title, author, publisher, description string, totalCopies int) (*model.Book, error) {
	if totalCopies < 0 {
		return nil, fmt.Errorf("total copies must not be negative")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO books (isbn, title, author, publisher, description, total_copies, available_copies)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		isbn, title, author, publisher, description, totalCopies, totalCopies,
	)
	if err != nil {
		// Not every title has an ISBN; the partial unique index only
		// covers non-empty ones.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("book with ISBN %s already exists", isbn)
		}
		return nil, fmt.Errorf("creating book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting book id: %w", err)
	}

	return GetBook(ctx, db, id)
}

// GetBook returns a book by ID, or nil if it does not exist.
func GetBook(ctx context.Context, db *sql.DB, id int64) (*model.Book, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return scanBook(row)
}

// GetBookByISBN returns a book by ISBN, or nil if it does not exist.
func GetBookByISBN(ctx context.Context, db *sql.DB, isbn string) (*model.Book, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE isbn = ?`, isbn)
	return scanBook(row)
}

// ListBooks returns non-deleted books, optionally filtered by a search
// query (matched against title, author, ISBN and description) and status.
func ListBooks(ctx context.Context, db *sql.DB, search, status string) ([]model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books`
	var clauses []string
	var args []any

	if search != "" {
		clauses = append(clauses, `(title LIKE ? OR author LIKE ? OR isbn LIKE ? OR description LIKE ?)`)
		pattern := "%" + strings.TrimSpace(search) + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if status != "" {
		clauses = append(clauses, `status = ?`)
		args = append(args, status)
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}

	query += ` ORDER BY title`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		b, err := scanBookRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// UpdateBook updates a book's metadata (not its copy counts or status).
func UpdateBook(ctx context.Context, db *sql.DB, id int64, title, author, publisher, description string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE books SET title = ?, author = ?, publisher = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		title, author, publisher, description, id,
	)
	if err != nil {
		return fmt.Errorf("updating book: %w", err)
	}
	return requireRow(result)
}

// SetBookStatus changes a book's lending status. Withdrawn and
// maintenance books stay in the catalog but cannot be borrowed.
func SetBookStatus(ctx context.Context, db *sql.DB, id int64, status string) error {
	if !model.ValidBookStatus(status) {
		return fmt.Errorf("invalid book status %q", status)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE books SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("setting book status: %w", err)
	}
	return requireRow(result)
}

// SetBookCopies changes a book's total copy count, moving the available
// count by the same delta. The total can never drop below the number of
// copies currently on loan.
func SetBookCopies(ctx context.Context, db *sql.DB, id int64, total int) error {
	if total < 0 {
		return fmt.Errorf("total copies must not be negative")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var curTotal, curAvailable int
	err = tx.QueryRowContext(ctx,
		`SELECT total_copies, available_copies FROM books WHERE id = ?`, id,
	).Scan(&curTotal, &curAvailable)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking copy counts: %w", err)
	}

	onLoan := curTotal - curAvailable
	if total < onLoan {
		return fmt.Errorf("cannot reduce to %d copies: %d currently on loan", total, onLoan)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE books SET total_copies = ?, available_copies = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		total, total-onLoan, id,
	)
	if err != nil {
		return fmt.Errorf("setting copy counts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing copy counts: %w", err)
	}
	return nil
}

// DeleteBook removes a book from the catalog. Its loans are removed with
// it (ON DELETE CASCADE).
func DeleteBook(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}
	return requireRow(result)
}

// SetBookCover sets a book's cover image data.
func SetBookCover(ctx context.Context, db *sql.DB, id int64, cover []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE books SET cover = ?, cover_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		cover, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting book cover: %w", err)
	}
	return requireRow(result)
}

// GetBookCover returns a book's cover image data and MIME type.
func GetBookCover(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var cover []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT cover, cover_mime FROM books WHERE id = ?`, id,
	).Scan(&cover, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting book cover: %w", err)
	}
	return cover, mime.String, nil
}

// requireRow converts a zero-row update into ErrNotFound.
func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row *sql.Row) (*model.Book, error) {
	b, err := scanBookRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting book: %w", err)
	}
	return b, nil
}

func scanBookRow(row rowScanner) (*model.Book, error) {
	b := &model.Book{}
	var publisher, description, coverMime sql.NullString
	err := row.Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &publisher, &description, &coverMime,
		&b.TotalCopies, &b.AvailableCopies, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Publisher = publisher.String
	b.Description = description.String
	b.CoverMime = coverMime.String
	return b, nil
}
