package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/knjiznica/internal/db"
	"github.com/erazemk/knjiznica/internal/model"
)

func TestAccrueFine(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	policy := model.DefaultPolicy()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	user := seedUser(t, database, "alice")
	book := seedBook(t, database, "Overdue Reading", 1)

	loan, err := BorrowBook(ctx, database, user.ID, book.ID, policy, now)
	if err != nil {
		t.Fatalf("BorrowBook: %v", err)
	}

	// 10 whole days past due at 50 cents per day.
	late := now.AddDate(0, 0, policy.LoanPeriodDays+10)
	fine, err := AccrueFine(ctx, database, loan.ID, policy, late)
	if err != nil {
		t.Fatalf("AccrueFine: %v", err)
	}
	if fine != 500 {
		t.Errorf("expected fine 500, got %d", fine)
	}

	after, _ := GetLoan(ctx, database, loan.ID)
	if after.Status != model.LoanStatusOverdue {
		t.Errorf("expected status 'overdue', got %q", after.Status)
	}
	if after.FineCents != 500 {
		t.Errorf("expected stored fine 500, got %d", after.FineCents)
	}

	// Accruing again at the same time changes nothing.
	fine, err = AccrueFine(ctx, database, loan.ID, policy, late)
	if err != nil {
		t.Fatalf("second AccrueFine: %v", err)
	}
	if fine != 500 {
		t.Errorf("expected fine to stay 500, got %d", fine)
	}

	// More days pass, the fine grows.
	fine, err = AccrueFine(ctx, database, loan.ID, policy, late.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("third AccrueFine: %v", err)
	}
	if fine != 600 {
		t.Errorf("expected fine 600 after 12 days, got %d", fine)
	}
}

func TestAccrueFineNotOverdue(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	policy := model.DefaultPolicy()
	now := time.Now()

	user := seedUser(t, database, "alice")
	book := seedBook(t, database, "On Time", 1)

	loan, err := BorrowBook(ctx, database, user.ID, book.ID, policy, now)
	if err != nil {
		t.Fatalf("BorrowBook: %v", err)
	}

	fine, err := AccrueFine(ctx, database, loan.ID, policy, now.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("AccrueFine: %v", err)
	}
	if fine != 0 {
		t.Errorf("expected no fine on a current loan, got %d", fine)
	}

	after, _ := GetLoan(ctx, database, loan.ID)
	if after.Status != model.LoanStatusActive {
		t.Errorf("expected status 'active', got %q", after.Status)
	}

	if _, err := AccrueFine(ctx, database, loan.ID+100, policy, now); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPayFine(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	policy := model.DefaultPolicy()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	alice := seedUser(t, database, "alice")
	bob := seedUser(t, database, "bob")
	book := seedBook(t, database, "Expensive Delay", 1)

	loan, err := BorrowBook(ctx, database, alice.ID, book.ID, policy, now)
	if err != nil {
		t.Fatalf("BorrowBook: %v", err)
	}

	// Nothing due before any fine exists.
	if err := PayFine(ctx, database, alice.ID, loan.ID, now); !errors.Is(err, ErrNothingDue) {
		t.Fatalf("expected ErrNothingDue, got %v", err)
	}

	late := now.AddDate(0, 0, policy.LoanPeriodDays+4)
	if _, err := AccrueFine(ctx, database, loan.ID, policy, late); err != nil {
		t.Fatalf("AccrueFine: %v", err)
	}

	if err := PayFine(ctx, database, bob.ID, loan.ID, late); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for another user, got %v", err)
	}

	if err := PayFine(ctx, database, alice.ID, loan.ID, late); err != nil {
		t.Fatalf("PayFine: %v", err)
	}

	after, _ := GetLoan(ctx, database, loan.ID)
	if !after.FinePaid {
		t.Error("expected fine to be marked paid")
	}
	if after.FinePaidDate == nil {
		t.Error("expected fine paid date to be set")
	}

	// Paying twice fails, and a paid fine no longer grows.
	if err := PayFine(ctx, database, alice.ID, loan.ID, late); !errors.Is(err, ErrNothingDue) {
		t.Fatalf("expected ErrNothingDue on double payment, got %v", err)
	}
	fine, err := AccrueFine(ctx, database, loan.ID, policy, late.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("AccrueFine after payment: %v", err)
	}
	if fine != after.FineCents {
		t.Errorf("paid fine grew from %d to %d", after.FineCents, fine)
	}
}

func TestCountAndFindOpenLoans(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	policy := model.DefaultPolicy()
	now := time.Now()

	user := seedUser(t, database, "alice")
	first := seedBook(t, database, "First", 1)
	second := seedBook(t, database, "Second", 1)

	loan1, err := BorrowBook(ctx, database, user.ID, first.ID, policy, now)
	if err != nil {
		t.Fatalf("borrow first: %v", err)
	}
	if _, err := BorrowBook(ctx, database, user.ID, second.ID, policy, now); err != nil {
		t.Fatalf("borrow second: %v", err)
	}

	if n, _ := CountOpenLoans(ctx, database, user.ID); n != 2 {
		t.Errorf("expected 2 open loans, got %d", n)
	}

	found, err := FindOpenLoan(ctx, database, user.ID, first.ID)
	if err != nil {
		t.Fatalf("FindOpenLoan: %v", err)
	}
	if found == nil || found.ID != loan1.ID {
		t.Errorf("expected loan %d, got %+v", loan1.ID, found)
	}

	if _, err := ReturnBook(ctx, database, user.ID, loan1.ID, policy, now); err != nil {
		t.Fatalf("ReturnBook: %v", err)
	}
	if n, _ := CountOpenLoans(ctx, database, user.ID); n != 1 {
		t.Errorf("expected 1 open loan after return, got %d", n)
	}
	found, _ = FindOpenLoan(ctx, database, user.ID, first.ID)
	if found != nil {
		t.Errorf("expected no open loan for returned book, got %+v", found)
	}
}

func TestListLoansForUserExcludesRequests(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now()

	user := seedUser(t, database, "alice")
	lent := seedBook(t, database, "Lent", 1)
	requested := seedBook(t, database, "Requested", 1)
	denied := seedBook(t, database, "Denied", 1)

	direct := model.DefaultPolicy()
	if _, err := BorrowBook(ctx, database, user.ID, lent.ID, direct, now); err != nil {
		t.Fatalf("borrow: %v", err)
	}

	approval := model.DefaultPolicy()
	approval.RequireApproval = true
	if _, err := BorrowBook(ctx, database, user.ID, requested.ID, approval, now); err != nil {
		t.Fatalf("request: %v", err)
	}
	deniedLoan, err := BorrowBook(ctx, database, user.ID, denied.ID, approval, now)
	if err != nil {
		t.Fatalf("request to deny: %v", err)
	}
	if _, err := RejectLoan(ctx, database, deniedLoan.ID); err != nil {
		t.Fatalf("RejectLoan: %v", err)
	}

	// History shows only loans that actually lent a copy.
	history, err := ListLoansForUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("ListLoansForUser: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(history))
	}
	if history[0].BookTitle != "Lent" {
		t.Errorf("expected history entry for 'Lent', got %q", history[0].BookTitle)
	}

	// The open view includes the pending request but not the rejection.
	open, err := ListOpenLoansForUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("ListOpenLoansForUser: %v", err)
	}
	if len(open) != 2 {
		t.Errorf("expected 2 open loans, got %d", len(open))
	}
}

func TestListLoansForBook(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	policy := model.DefaultPolicy()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	alice := seedUser(t, database, "alice")
	bob := seedUser(t, database, "bob")
	book := seedBook(t, database, "Shared Title", 2)

	loanA, err := BorrowBook(ctx, database, alice.ID, book.ID, policy, now)
	if err != nil {
		t.Fatalf("borrow by alice: %v", err)
	}
	if _, err := BorrowBook(ctx, database, bob.ID, book.ID, policy, now.Add(time.Hour)); err != nil {
		t.Fatalf("borrow by bob: %v", err)
	}
	if _, err := ReturnBook(ctx, database, alice.ID, loanA.ID, policy, now.AddDate(0, 0, 3)); err != nil {
		t.Fatalf("ReturnBook: %v", err)
	}

	loans, err := ListLoansForBook(ctx, database, book.ID)
	if err != nil {
		t.Fatalf("ListLoansForBook: %v", err)
	}
	if len(loans) != 2 {
		t.Fatalf("expected 2 loans, got %d", len(loans))
	}
	if loans[0].Username != "bob" {
		t.Errorf("expected newest loan first (bob), got %q", loans[0].Username)
	}
}
