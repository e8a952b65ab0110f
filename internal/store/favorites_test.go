package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/erazemk/knjiznica/internal/db"
	"github.com/erazemk/knjiznica/internal/model"
)

func TestToggleFavorite(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice")
	book := seedBook(t, database, "Keeper", 1)

	active, err := ToggleFavorite(ctx, database, user.ID, book.ID)
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !active {
		t.Error("expected favorite to be active after first toggle")
	}
	if fav, _ := IsFavorited(ctx, database, user.ID, book.ID); !fav {
		t.Error("expected IsFavorited true")
	}

	active, err = ToggleFavorite(ctx, database, user.ID, book.ID)
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if active {
		t.Error("expected favorite to be inactive after second toggle")
	}
	if n, _ := CountFavorites(ctx, database, user.ID); n != 0 {
		t.Errorf("expected 0 active favorites, got %d", n)
	}

	if _, err := ToggleFavorite(ctx, database, user.ID, book.ID+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing book, got %v", err)
	}
}

func TestFavoriteNoteSurvivesToggle(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice")
	book := seedBook(t, database, "Annotated", 1)

	if _, err := ToggleFavorite(ctx, database, user.ID, book.ID); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if err := SetFavoriteNote(ctx, database, user.ID, book.ID, "recommended by Tina"); err != nil {
		t.Fatalf("SetFavoriteNote: %v", err)
	}

	// Toggle off and back on; the note stays with the row.
	if _, err := ToggleFavorite(ctx, database, user.ID, book.ID); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if _, err := ToggleFavorite(ctx, database, user.ID, book.ID); err != nil {
		t.Fatalf("toggle back on: %v", err)
	}

	favorites, err := ListFavorites(ctx, database, user.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListFavorites: %v", err)
	}
	if len(favorites) != 1 {
		t.Fatalf("expected 1 favorite, got %d", len(favorites))
	}
	if favorites[0].Note != "recommended by Tina" {
		t.Errorf("expected note to survive the toggle, got %q", favorites[0].Note)
	}
}

func TestSetFavoriteNoteRequiresActiveFavorite(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice")
	book := seedBook(t, database, "Unfavorited", 1)

	err := SetFavoriteNote(ctx, database, user.ID, book.ID, "note")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListFavoritesPagination(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user := seedUser(t, database, "alice")
	for i := 0; i < 5; i++ {
		book := seedBook(t, database, fmt.Sprintf("Book %d", i), 1)
		if _, err := ToggleFavorite(ctx, database, user.ID, book.ID); err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
	}

	if n, _ := CountFavorites(ctx, database, user.ID); n != 5 {
		t.Fatalf("expected 5 favorites, got %d", n)
	}

	page1, err := ListFavorites(ctx, database, user.ID, 1, 2)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page1) != 2 {
		t.Errorf("expected 2 favorites on page 1, got %d", len(page1))
	}

	page3, err := ListFavorites(ctx, database, user.ID, 3, 2)
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if len(page3) != 1 {
		t.Errorf("expected 1 favorite on page 3, got %d", len(page3))
	}

	past, err := ListFavorites(ctx, database, user.ID, 4, 2)
	if err != nil {
		t.Fatalf("page past the end: %v", err)
	}
	if len(past) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(past))
	}
}

func TestListFavoritesAvailability(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	policy := model.DefaultPolicy()
	now := time.Now()

	alice := seedUser(t, database, "alice")
	bob := seedUser(t, database, "bob")
	book := seedBook(t, database, "Last Copy", 1)

	if _, err := ToggleFavorite(ctx, database, alice.ID, book.ID); err != nil {
		t.Fatalf("ToggleFavorite: %v", err)
	}

	favorites, _ := ListFavorites(ctx, database, alice.ID, 1, 10)
	if len(favorites) != 1 || !favorites[0].BookAvailable {
		t.Fatalf("expected available favorite, got %+v", favorites)
	}

	// Another member takes the last copy; the favorite shows it.
	if _, err := BorrowBook(ctx, database, bob.ID, book.ID, policy, now); err != nil {
		t.Fatalf("BorrowBook: %v", err)
	}
	favorites, _ = ListFavorites(ctx, database, alice.ID, 1, 10)
	if len(favorites) != 1 || favorites[0].BookAvailable {
		t.Errorf("expected unavailable favorite, got %+v", favorites)
	}
}
