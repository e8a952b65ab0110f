package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/knjiznica/internal/db"
	"github.com/erazemk/knjiznica/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "alice", "alice@example.com", "hash",
		model.RoleMember, model.UserStatusActive)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Role != model.RoleMember {
		t.Errorf("expected role 'member', got %q", user.Role)
	}

	byName, err := GetUserByUsername(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if byName == nil || byName.ID != user.ID {
		t.Errorf("expected user %d, got %+v", user.ID, byName)
	}

	missing, err := GetUserByUsername(ctx, database, "nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername(missing): %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing user, got %+v", missing)
	}
}

func TestListUsersFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "alice", "alice@example.com", "h", model.RoleMember, model.UserStatusActive)
	CreateUser(ctx, database, "bob", "bob@example.com", "h", model.RoleMember, model.UserStatusPending)
	CreateUser(ctx, database, "carol", "carol@library.org", "h", model.RoleLibrarian, model.UserStatusActive)

	all, err := ListUsers(ctx, database, "", "")
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 users, got %d", len(all))
	}

	pending, _ := ListUsers(ctx, database, "", model.UserStatusPending)
	if len(pending) != 1 || pending[0].Username != "bob" {
		t.Errorf("expected pending bob, got %+v", pending)
	}

	byEmail, _ := ListUsers(ctx, database, "library.org", "")
	if len(byEmail) != 1 || byEmail[0].Username != "carol" {
		t.Errorf("expected carol by email domain, got %+v", byEmail)
	}
}

func TestSetUserStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "pending", "p@example.com", "h",
		model.RoleMember, model.UserStatusPending)

	if err := SetUserStatus(ctx, database, user.ID, model.UserStatusActive); err != nil {
		t.Fatalf("SetUserStatus: %v", err)
	}
	approved, _ := GetUser(ctx, database, user.ID)
	if approved.Status != model.UserStatusActive {
		t.Errorf("expected status 'active', got %q", approved.Status)
	}

	if err := SetUserStatus(ctx, database, user.ID, "banned"); err == nil {
		t.Error("expected error for invalid status")
	}
	if err := SetUserStatus(ctx, database, user.ID+100, model.UserStatusActive); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSoftDeleteUserFreesUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "alice", "a@example.com", "h",
		model.RoleMember, model.UserStatusActive)

	if err := DeleteUser(ctx, database, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	users, _ := ListUsers(ctx, database, "", "")
	if len(users) != 0 {
		t.Errorf("expected 0 users after soft delete, got %d", len(users))
	}

	// Still fetchable by ID so the loan ledger keeps its names.
	got, _ := GetUser(ctx, database, user.ID)
	if got == nil || got.DeletedAt == nil {
		t.Errorf("expected soft-deleted user by ID, got %+v", got)
	}

	// The username is free for a new account.
	if _, err := CreateUser(ctx, database, "alice", "new@example.com", "h",
		model.RoleMember, model.UserStatusActive); err != nil {
		t.Errorf("reusing freed username: %v", err)
	}

	if err := DeleteUser(ctx, database, user.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "alice", "a@example.com", "old-hash",
		model.RoleMember, model.UserStatusActive)

	if err := UpdateUserPassword(ctx, database, user.ID, "new-hash"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}

	updated, _ := GetUser(ctx, database, user.ID)
	if updated.PasswordHash != "new-hash" {
		t.Errorf("expected updated hash, got %q", updated.PasswordHash)
	}
}
