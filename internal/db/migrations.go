package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end.
var migrations = []string{
	// Migration 1: Rebuild the open-loan uniqueness index so that rejected
	// requests no longer block a user from borrowing the same book again.
	`DROP INDEX IF EXISTS idx_loans_open`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_open
	     ON loans(user_id, book_id)
	     WHERE return_date IS NULL AND status IN ('requested', 'active', 'overdue')`,
}

// Migrate ensures the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
