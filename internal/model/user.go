package model

import (
	"fmt"
	"time"
)

// User represents a library account (patron or staff).
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles.
const (
	RoleAdmin     = "admin"
	RoleLibrarian = "librarian"
	RoleMember    = "member"
)

// Account statuses. New registrations start as pending when the
// request-approval workflow is enabled, otherwise active.
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
	UserStatusPending  = "pending"
	UserStatusRejected = "rejected"
)

// CanBorrow reports whether the account may participate in lending.
func (u *User) CanBorrow() bool {
	return u.Status == UserStatusActive && u.DeletedAt == nil
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:     3,
		RoleLibrarian: 2,
		RoleMember:    1,
	}
	r, ok := levels[role]
	if !ok {
		return false
	}
	return r >= levels[minimum]
}

// ValidUserStatus reports whether s is a known account status.
func ValidUserStatus(s string) bool {
	switch s {
	case UserStatusActive, UserStatusDisabled, UserStatusPending, UserStatusRejected:
		return true
	}
	return false
}

// ValidatePassword checks minimal password requirements.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}
