package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/knjiznica/internal/db"
	"github.com/erazemk/knjiznica/internal/model"
)

func TestCreateAndGetBook(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	book, err := CreateBook(ctx, database, "978-0134190440", "The Go Programming Language",
		"Donovan & Kernighan", "Addison-Wesley", "The reference.", 3)
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	if book.Status != model.BookStatusActive {
		t.Errorf("expected status 'active', got %q", book.Status)
	}
	if book.AvailableCopies != book.TotalCopies {
		t.Errorf("expected all copies available, got %d/%d", book.AvailableCopies, book.TotalCopies)
	}

	byISBN, err := GetBookByISBN(ctx, database, "978-0134190440")
	if err != nil {
		t.Fatalf("GetBookByISBN: %v", err)
	}
	if byISBN == nil || byISBN.ID != book.ID {
		t.Errorf("expected book %d by ISBN, got %+v", book.ID, byISBN)
	}

	// Same ISBN again is refused with a readable error, not a raw
	// constraint failure; a missing ISBN is fine more than once.
	_, err = CreateBook(ctx, database, "978-0134190440", "Duplicate", "X", "", "", 1)
	if err == nil {
		t.Error("expected error for duplicate ISBN")
	} else if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected 'already exists' error, got %v", err)
	}
	if _, err := CreateBook(ctx, database, "", "No ISBN One", "X", "", "", 1); err != nil {
		t.Errorf("first ISBN-less book: %v", err)
	}
	if _, err := CreateBook(ctx, database, "", "No ISBN Two", "X", "", "", 1); err != nil {
		t.Errorf("second ISBN-less book: %v", err)
	}
}

func TestListBooksSearch(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateBook(ctx, database, "", "Concurrency in Go", "Katherine Cox-Buday", "", "Goroutines and channels.", 1)
	CreateBook(ctx, database, "", "Learning Python", "Mark Lutz", "", "", 1)
	book, _ := CreateBook(ctx, database, "", "Go in Action", "William Kennedy", "", "", 1)
	SetBookStatus(ctx, database, book.ID, model.BookStatusWithdrawn)

	all, err := ListBooks(ctx, database, "", "")
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 books, got %d", len(all))
	}

	goBooks, _ := ListBooks(ctx, database, "Go", "")
	if len(goBooks) != 2 {
		t.Errorf("expected 2 matches for 'Go', got %d", len(goBooks))
	}

	byAuthor, _ := ListBooks(ctx, database, "Lutz", "")
	if len(byAuthor) != 1 {
		t.Errorf("expected 1 match for 'Lutz', got %d", len(byAuthor))
	}

	withdrawn, _ := ListBooks(ctx, database, "", model.BookStatusWithdrawn)
	if len(withdrawn) != 1 {
		t.Errorf("expected 1 withdrawn book, got %d", len(withdrawn))
	}
}

func TestUpdateBook(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	book, _ := CreateBook(ctx, database, "", "Draft Title", "Anon", "", "", 1)

	if err := UpdateBook(ctx, database, book.ID, "Final Title", "Known Author", "Pub", "Desc"); err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}

	updated, _ := GetBook(ctx, database, book.ID)
	if updated.Title != "Final Title" || updated.Author != "Known Author" {
		t.Errorf("update not applied: %+v", updated)
	}

	if err := UpdateBook(ctx, database, book.ID+100, "X", "Y", "", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetBookCopies(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	policy := model.DefaultPolicy()
	now := time.Now()

	user := seedUser(t, database, "alice")
	book := seedBook(t, database, "Restocked", 2)

	if _, err := BorrowBook(ctx, database, user.ID, book.ID, policy, now); err != nil {
		t.Fatalf("BorrowBook: %v", err)
	}

	// Grow the stock: one copy stays out, the rest are available.
	if err := SetBookCopies(ctx, database, book.ID, 5); err != nil {
		t.Fatalf("SetBookCopies: %v", err)
	}
	total, available := bookCounters(t, database, book.ID)
	if total != 5 || available != 4 {
		t.Errorf("expected counters 5/4, got %d/%d", total, available)
	}

	// Shrinking below the copies on loan is refused.
	if err := SetBookCopies(ctx, database, book.ID, 0); err == nil {
		t.Error("expected error shrinking below copies on loan")
	}
	if err := SetBookCopies(ctx, database, book.ID, 1); err != nil {
		t.Fatalf("shrink to on-loan count: %v", err)
	}
	total, available = bookCounters(t, database, book.ID)
	if total != 1 || available != 0 {
		t.Errorf("expected counters 1/0, got %d/%d", total, available)
	}
}

func TestDeleteBookCascadesLoans(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	policy := model.DefaultPolicy()
	now := time.Now()

	user := seedUser(t, database, "alice")
	book := seedBook(t, database, "Removed", 1)

	loan, err := BorrowBook(ctx, database, user.ID, book.ID, policy, now)
	if err != nil {
		t.Fatalf("BorrowBook: %v", err)
	}

	if err := DeleteBook(ctx, database, book.ID); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}

	if got, _ := GetBook(ctx, database, book.ID); got != nil {
		t.Errorf("expected deleted book to be gone, got %+v", got)
	}
	if got, _ := GetLoan(ctx, database, loan.ID); got != nil {
		t.Errorf("expected cascaded loan to be gone, got %+v", got)
	}
	if n, _ := CountOpenLoans(ctx, database, user.ID); n != 0 {
		t.Errorf("expected 0 open loans after cascade, got %d", n)
	}
}

func TestBookCover(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	book := seedBook(t, database, "Illustrated", 1)

	data, mime, err := GetBookCover(ctx, database, book.ID)
	if err != nil {
		t.Fatalf("GetBookCover: %v", err)
	}
	if data != nil || mime != "" {
		t.Errorf("expected no cover yet, got %d bytes (%q)", len(data), mime)
	}

	if err := SetBookCover(ctx, database, book.ID, []byte{0xff, 0xd8, 0xff}, "image/jpeg"); err != nil {
		t.Fatalf("SetBookCover: %v", err)
	}

	data, mime, err = GetBookCover(ctx, database, book.ID)
	if err != nil {
		t.Fatalf("GetBookCover: %v", err)
	}
	if len(data) != 3 || mime != "image/jpeg" {
		t.Errorf("expected stored cover, got %d bytes (%q)", len(data), mime)
	}
}
