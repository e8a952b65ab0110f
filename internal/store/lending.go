package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/knjiznica/internal/model"
)

// The lending operations below each run as a single transaction spanning
// the book's copy counters and the loan row, so a failure at any step
// leaves both untouched. The copy counters are only ever moved through
// the guarded updates in checkoutCopy/checkinCopy, which re-check the
// bounds inside the transaction; two concurrent borrows of the last copy
// therefore cannot both succeed, regardless of what either read earlier.
// SQLite's busy_timeout bounds how long a writer waits for the lock.

// BorrowBook lends a copy of a book to a user, or files a loan request
// when the approval workflow is enabled. The copy is held either way.
func BorrowBook(ctx context.Context, db *sql.DB, userID, bookID int64, policy model.Policy, now time.Time) (*model.Loan, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Borrower must exist and be in good standing.
	var userStatus string
	var deleted sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT status, deleted_at FROM users WHERE id = ?`, userID,
	).Scan(&userStatus, &deleted)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("checking user: %w", err)
	}
	if userStatus != model.UserStatusActive || deleted.Valid {
		return nil, ErrForbidden
	}

	var bookStatus string
	var available int
	err = tx.QueryRowContext(ctx,
		`SELECT status, available_copies FROM books WHERE id = ?`, bookID,
	).Scan(&bookStatus, &available)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("book %d: %w", bookID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("checking book: %w", err)
	}
	if bookStatus != model.BookStatusActive {
		return nil, ErrBookUnavailable
	}
	if available <= 0 {
		return nil, ErrOutOfStock
	}

	// No duplicate open loan for the same (user, book) pair. The partial
	// unique index enforces this as well; checking here gives a clean
	// error instead of a constraint violation.
	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans
		 WHERE user_id = ? AND book_id = ? AND return_date IS NULL AND status != 'rejected'`,
		userID, bookID,
	).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("checking for open loan: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateLoan
	}

	var open int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE user_id = ? AND return_date IS NULL AND status != 'rejected'`,
		userID,
	).Scan(&open)
	if err != nil {
		return nil, fmt.Errorf("counting open loans: %w", err)
	}
	if open >= policy.MaxOpenLoans {
		return nil, ErrBorrowLimit
	}

	if err := checkoutCopy(ctx, tx, bookID); err != nil {
		return nil, err
	}

	status := model.LoanStatusActive
	if policy.RequireApproval {
		status = model.LoanStatusRequested
	}
	due := now.AddDate(0, 0, policy.LoanPeriodDays)

	result, err := tx.ExecContext(ctx,
		`INSERT INTO loans (user_id, book_id, borrow_date, due_date, status) VALUES (?, ?, ?, ?, ?)`,
		userID, bookID, now, due, status,
	)
	if err != nil {
		return nil, fmt.Errorf("creating loan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing borrow: %w", err)
	}

	loanID, _ := result.LastInsertId()
	return GetLoan(ctx, db, loanID)
}

// RenewLoan extends a loan's due date by the policy's renewal period.
// Only the borrower's own active, non-overdue loans below the renewal cap
// can be renewed; on any failure the due date is left unchanged.
func RenewLoan(ctx context.Context, db *sql.DB, userID, loanID int64, policy model.Policy, now time.Time) (*model.Loan, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	loan, err := getLoanTx(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, ErrNotFound
	}
	if loan.UserID != userID {
		return nil, ErrForbidden
	}
	if !loan.IsOpen() || loan.Status == model.LoanStatusReturned {
		return nil, ErrAlreadyClosed
	}
	if loan.IsOverdue(now) {
		return nil, ErrLoanOverdue
	}
	if loan.Status != model.LoanStatusActive {
		return nil, ErrLoanNotActive
	}
	if loan.RenewTimes >= policy.MaxRenewals {
		return nil, ErrRenewLimit
	}

	newDue := loan.DueDate.AddDate(0, 0, policy.RenewalDays)
	_, err = tx.ExecContext(ctx,
		`UPDATE loans SET due_date = ?, renew_times = renew_times + 1, last_renew_date = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		newDue, now, loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("renewing loan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing renewal: %w", err)
	}
	return GetLoan(ctx, db, loanID)
}

// ReturnBook closes the borrower's loan and puts the copy back in
// circulation. An overdue return records its fine as part of the same
// transaction.
func ReturnBook(ctx context.Context, db *sql.DB, userID, loanID int64, policy model.Policy, now time.Time) (*model.Loan, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	loan, err := getLoanTx(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, ErrNotFound
	}
	if loan.UserID != userID {
		return nil, ErrForbidden
	}
	if !loan.IsOpen() {
		return nil, ErrAlreadyClosed
	}
	// A request that was never approved has nothing to return; it stays
	// in the queue until a librarian approves or rejects it.
	if loan.Status == model.LoanStatusRequested {
		return nil, ErrLoanNotActive
	}

	fine := loan.FineCents
	if loan.IsOverdue(now) && !loan.FinePaid {
		fine = int64(loan.OverdueDays(now)) * policy.FineDailyCents
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE loans SET return_date = ?, status = 'returned', fine_cents = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		now, fine, loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("closing loan: %w", err)
	}

	if err := checkinCopy(ctx, tx, loan.BookID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing return: %w", err)
	}
	return GetLoan(ctx, db, loanID)
}

// ApproveLoan turns a pending loan request into an active loan. The
// borrowing period starts at approval time.
func ApproveLoan(ctx context.Context, db *sql.DB, loanID int64, policy model.Policy, now time.Time) (*model.Loan, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	loan, err := getLoanTx(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, ErrNotFound
	}
	if loan.Status != model.LoanStatusRequested {
		return nil, ErrNotPending
	}

	due := now.AddDate(0, 0, policy.LoanPeriodDays)
	_, err = tx.ExecContext(ctx,
		`UPDATE loans SET status = 'active', borrow_date = ?, due_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		now, due, loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("approving loan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing approval: %w", err)
	}
	return GetLoan(ctx, db, loanID)
}

// RejectLoan denies a pending loan request and returns the held copy to
// circulation.
func RejectLoan(ctx context.Context, db *sql.DB, loanID int64) (*model.Loan, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	loan, err := getLoanTx(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, ErrNotFound
	}
	if loan.Status != model.LoanStatusRequested {
		return nil, ErrNotPending
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE loans SET status = 'rejected', updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("rejecting loan: %w", err)
	}

	if err := checkinCopy(ctx, tx, loan.BookID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing rejection: %w", err)
	}
	return GetLoan(ctx, db, loanID)
}

// checkoutCopy takes one available copy of a book. The guard in the WHERE
// clause makes the decrement and the stock check one atomic statement.
func checkoutCopy(ctx context.Context, tx *sql.Tx, bookID int64) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies - 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND available_copies > 0`,
		bookID,
	)
	if err != nil {
		return fmt.Errorf("checking out copy: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking out copy: %w", err)
	}
	if n == 0 {
		return ErrOutOfStock
	}
	return nil
}

// checkinCopy puts one copy of a book back. A failure here means a
// checkin without a matching checkout; the guard keeps available_copies
// within bounds no matter what the caller got wrong, and the resulting
// error aborts the enclosing transaction.
func checkinCopy(ctx context.Context, tx *sql.Tx, bookID int64) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND available_copies < total_copies`,
		bookID,
	)
	if err != nil {
		return fmt.Errorf("checking in copy: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking in copy: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("checking in copy: book %d already has all copies in stock", bookID)
	}
	return nil
}
