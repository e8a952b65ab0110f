package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/knjiznica/internal/model"
)

const loanColumns = `l.id, l.user_id, l.book_id, l.borrow_date, l.due_date, l.return_date,
	 l.status, l.renew_times, l.last_renew_date, l.fine_cents, l.fine_paid, l.fine_paid_date,
	 l.created_at, l.updated_at, b.title, b.author, u.username`

const loanJoins = ` FROM loans l
	 JOIN books b ON b.id = l.book_id
	 JOIN users u ON u.id = l.user_id`

// GetLoan returns a loan by ID, or nil if it does not exist.
func GetLoan(ctx context.Context, db *sql.DB, id int64) (*model.Loan, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+loanColumns+loanJoins+` WHERE l.id = ?`, id)
	l, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	return l, nil
}

// FindOpenLoan returns the user's open loan for a book, or nil. A loan is
// open while it has no return date and has not been rejected.
func FindOpenLoan(ctx context.Context, db *sql.DB, userID, bookID int64) (*model.Loan, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+loanColumns+loanJoins+`
		 WHERE l.user_id = ? AND l.book_id = ? AND l.return_date IS NULL AND l.status != 'rejected'`,
		userID, bookID)
	l, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding open loan: %w", err)
	}
	return l, nil
}

// CountOpenLoans returns how many copies the user currently holds or has
// requested.
func CountOpenLoans(ctx context.Context, db *sql.DB, userID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE user_id = ? AND return_date IS NULL AND status != 'rejected'`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting open loans: %w", err)
	}
	return n, nil
}

// ListOpenLoansForUser returns the user's open loans, newest first.
func ListOpenLoansForUser(ctx context.Context, db *sql.DB, userID int64) ([]model.Loan, error) {
	return listLoans(ctx, db,
		`WHERE l.user_id = ? AND l.return_date IS NULL AND l.status != 'rejected'
		 ORDER BY l.borrow_date DESC`, userID)
}

// ListLoansForUser returns the user's borrowing history, newest first.
// Pending requests and rejections are not part of the history.
func ListLoansForUser(ctx context.Context, db *sql.DB, userID int64) ([]model.Loan, error) {
	return listLoans(ctx, db,
		`WHERE l.user_id = ? AND l.status NOT IN ('requested', 'rejected')
		 ORDER BY l.borrow_date DESC`, userID)
}

// ListLoansForBook returns all loans of a book, newest first.
func ListLoansForBook(ctx context.Context, db *sql.DB, bookID int64) ([]model.Loan, error) {
	return listLoans(ctx, db,
		`WHERE l.book_id = ? ORDER BY l.borrow_date DESC`, bookID)
}

// ListPendingLoans returns loan requests awaiting approval, oldest first.
func ListPendingLoans(ctx context.Context, db *sql.DB) ([]model.Loan, error) {
	return listLoans(ctx, db,
		`WHERE l.status = 'requested' ORDER BY l.borrow_date`)
}

// AccrueFine computes and persists the fine on an overdue loan: the
// number of whole days past due times the daily rate. The loan's stored
// status becomes overdue at the same time. The operation is idempotent
// and leaves paid fines and non-overdue loans untouched. Returns the fine
// currently on record.
func AccrueFine(ctx context.Context, db *sql.DB, loanID int64, policy model.Policy, now time.Time) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	loan, err := getLoanTx(ctx, tx, loanID)
	if err != nil {
		return 0, err
	}
	if loan == nil {
		return 0, ErrNotFound
	}

	if !loan.IsOverdue(now) || loan.FinePaid {
		return loan.FineCents, nil
	}

	fine := int64(loan.OverdueDays(now)) * policy.FineDailyCents
	_, err = tx.ExecContext(ctx,
		`UPDATE loans SET fine_cents = ?, status = 'overdue', updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		fine, loanID,
	)
	if err != nil {
		return 0, fmt.Errorf("accruing fine: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing fine: %w", err)
	}
	return fine, nil
}

// PayFine marks a loan's fine as paid.
func PayFine(ctx context.Context, db *sql.DB, userID, loanID int64, now time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	loan, err := getLoanTx(ctx, tx, loanID)
	if err != nil {
		return err
	}
	if loan == nil {
		return ErrNotFound
	}
	if loan.UserID != userID {
		return ErrForbidden
	}
	if loan.FineCents <= 0 || loan.FinePaid {
		return ErrNothingDue
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE loans SET fine_paid = 1, fine_paid_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		now, loanID,
	)
	if err != nil {
		return fmt.Errorf("paying fine: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing fine payment: %w", err)
	}
	return nil
}

// getLoanTx loads a loan inside a transaction, without joined fields.
func getLoanTx(ctx context.Context, tx *sql.Tx, id int64) (*model.Loan, error) {
	l := &model.Loan{}
	err := tx.QueryRowContext(ctx,
		`SELECT id, user_id, book_id, borrow_date, due_date, return_date, status,
		        renew_times, last_renew_date, fine_cents, fine_paid, fine_paid_date,
		        created_at, updated_at
		 FROM loans WHERE id = ?`, id,
	).Scan(&l.ID, &l.UserID, &l.BookID, &l.BorrowDate, &l.DueDate, &l.ReturnDate, &l.Status,
		&l.RenewTimes, &l.LastRenewDate, &l.FineCents, &l.FinePaid, &l.FinePaidDate,
		&l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	return l, nil
}

func listLoans(ctx context.Context, db *sql.DB, clause string, args ...any) ([]model.Loan, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+loanColumns+loanJoins+` `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("listing loans: %w", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning loan: %w", err)
		}
		loans = append(loans, *l)
	}
	return loans, rows.Err()
}

func scanLoan(row rowScanner) (*model.Loan, error) {
	l := &model.Loan{}
	err := row.Scan(&l.ID, &l.UserID, &l.BookID, &l.BorrowDate, &l.DueDate, &l.ReturnDate,
		&l.Status, &l.RenewTimes, &l.LastRenewDate, &l.FineCents, &l.FinePaid, &l.FinePaidDate,
		&l.CreatedAt, &l.UpdatedAt, &l.BookTitle, &l.BookAuthor, &l.Username)
	if err != nil {
		return nil, err
	}
	return l, nil
}
