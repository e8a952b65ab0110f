package model

import "time"

// Loan represents one borrowing of one copy of a book by one user.
//
// A loan is "open" while ReturnDate is unset. Overdue is a derived
// condition (an open loan past its due date); the stored status only
// becomes LoanStatusOverdue once a fine has been accrued, so callers
// should use IsOverdue rather than comparing Status.
type Loan struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	BookID        int64      `json:"book_id"`
	BorrowDate    time.Time  `json:"borrow_date"`
	DueDate       time.Time  `json:"due_date"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`
	Status        string     `json:"status"`
	RenewTimes    int        `json:"renew_times"`
	LastRenewDate *time.Time `json:"last_renew_date,omitempty"`
	FineCents     int64      `json:"fine_cents"`
	FinePaid      bool       `json:"fine_paid"`
	FinePaidDate  *time.Time `json:"fine_paid_date,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	BookTitle  string `json:"book_title,omitempty"`
	BookAuthor string `json:"book_author,omitempty"`
	Username   string `json:"username,omitempty"`
}

// Loan statuses. Requested loans await librarian approval and turn into
// active on approval or rejected (terminal) on denial. Active loans close
// as returned; overdue is set lazily when a fine is accrued.
const (
	LoanStatusRequested = "requested"
	LoanStatusActive    = "active"
	LoanStatusOverdue   = "overdue"
	LoanStatusReturned  = "returned"
	LoanStatusRejected  = "rejected"
)

// IsOpen reports whether the loan still holds a copy: not yet returned
// and not rejected.
func (l *Loan) IsOpen() bool {
	return l.ReturnDate == nil && l.Status != LoanStatusRejected
}

// IsOverdue reports whether the loan is open and past its due date.
// Requested loans are not overdue; the clock starts at approval.
func (l *Loan) IsOverdue(now time.Time) bool {
	if !l.IsOpen() || l.Status == LoanStatusRequested {
		return false
	}
	return now.After(l.DueDate)
}

// OverdueDays returns the number of whole days the loan is past due,
// or 0 if it is not overdue.
func (l *Loan) OverdueDays(now time.Time) int {
	if !l.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(l.DueDate).Hours() / 24)
}

// BorrowDays returns how many whole days the copy has been out.
func (l *Loan) BorrowDays(now time.Time) int {
	end := now
	if l.ReturnDate != nil {
		end = *l.ReturnDate
	}
	return int(end.Sub(l.BorrowDate).Hours() / 24)
}

// CanRenew reports whether the loan may be renewed: active, not overdue,
// and below the renewal cap.
func (l *Loan) CanRenew(now time.Time, maxRenewals int) bool {
	return l.Status == LoanStatusActive &&
		!l.IsOverdue(now) &&
		l.RenewTimes < maxRenewals
}

// FineDue returns the fine that would be owed at the given time, in
// cents. It does not mutate the loan; once a fine is paid it stays at
// the recorded amount.
func (l *Loan) FineDue(now time.Time, dailyCents int64) int64 {
	if l.FinePaid {
		return l.FineCents
	}
	if days := l.OverdueDays(now); days > 0 {
		return int64(days) * dailyCents
	}
	return l.FineCents
}
