package store

import "errors"

// Domain failures surfaced by the store. Handlers match these with
// errors.Is to pick an HTTP status; everything else is treated as a
// storage failure.
var (
	// ErrNotFound means the requested entity does not exist (or is deleted).
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the actor may not operate on the entity, for
	// example returning a loan owned by someone else or borrowing with a
	// non-active account.
	ErrForbidden = errors.New("forbidden")

	// ErrBookUnavailable means the book is withdrawn or under maintenance.
	ErrBookUnavailable = errors.New("book not available for lending")

	// ErrOutOfStock means no copy of the book is currently available.
	ErrOutOfStock = errors.New("no copies available")

	// ErrDuplicateLoan means the user already holds an open loan for the book.
	ErrDuplicateLoan = errors.New("book already borrowed by user")

	// ErrBorrowLimit means the user has reached the open-loan cap.
	ErrBorrowLimit = errors.New("borrow limit reached")

	// ErrRenewLimit means the loan has been renewed the maximum number of times.
	ErrRenewLimit = errors.New("renewal limit reached")

	// ErrLoanOverdue means an overdue loan cannot be renewed.
	ErrLoanOverdue = errors.New("loan is overdue")

	// ErrAlreadyClosed means the loan is already returned or rejected.
	ErrAlreadyClosed = errors.New("loan already closed")

	// ErrNotPending means the loan is not awaiting approval.
	ErrNotPending = errors.New("loan is not pending approval")

	// ErrLoanNotActive means the loan has not been approved yet.
	ErrLoanNotActive = errors.New("loan is not active")

	// ErrNothingDue means there is no unpaid fine on the loan.
	ErrNothingDue = errors.New("no fine due")
)
