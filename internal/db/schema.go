package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    email         TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'member' CHECK (role IN ('admin', 'librarian', 'member')),
    status        TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'disabled', 'pending', 'rejected')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS books (
    id               INTEGER PRIMARY KEY,
    isbn             TEXT NOT NULL DEFAULT '',
    title            TEXT NOT NULL,
    author           TEXT NOT NULL,
    publisher        TEXT,
    description      TEXT,
    cover            BLOB,
    cover_mime       TEXT,
    total_copies     INTEGER NOT NULL DEFAULT 1 CHECK (total_copies >= 0),
    available_copies INTEGER NOT NULL DEFAULT 1,
    status           TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'withdrawn', 'maintenance')),
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (available_copies >= 0 AND available_copies <= total_copies)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_books_isbn ON books(isbn) WHERE isbn != '';

CREATE TABLE IF NOT EXISTS loans (
    id              INTEGER PRIMARY KEY,
    user_id         INTEGER NOT NULL REFERENCES users(id),
    book_id         INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
    borrow_date     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    due_date        DATETIME NOT NULL,
    return_date     DATETIME,
    status          TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('requested', 'active', 'overdue', 'returned', 'rejected')),
    renew_times     INTEGER NOT NULL DEFAULT 0 CHECK (renew_times >= 0),
    last_renew_date DATETIME,
    fine_cents      INTEGER NOT NULL DEFAULT 0 CHECK (fine_cents >= 0),
    fine_paid       BOOLEAN NOT NULL DEFAULT 0,
    fine_paid_date  DATETIME,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_loans_user ON loans(user_id);
CREATE INDEX IF NOT EXISTS idx_loans_book ON loans(book_id);

CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_open
    ON loans(user_id, book_id)
    WHERE return_date IS NULL AND status IN ('requested', 'active', 'overdue');

CREATE TABLE IF NOT EXISTS favorites (
    id         INTEGER PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    book_id    INTEGER NOT NULL REFERENCES books(id) ON DELETE CASCADE,
    note       TEXT,
    sort_order INTEGER NOT NULL DEFAULT 0,
    is_active  BOOLEAN NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (user_id, book_id)
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
// idx_loans_open enforces at most one open loan per (user, book) pair;
// rejected and returned loans fall out of the index so the pair can be
// borrowed again.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
