// Package store provides the SQLite-backed relational store for notes,
// tags, files, and shelves. Every statement filters by the owning user id,
// so cross-principal access is unrepresentable at the query level.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/starford/munin/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	text         TEXT NOT NULL DEFAULT '',
	created      INTEGER NOT NULL,
	last_edited  INTEGER NOT NULL,
	times_edited INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tags (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name    TEXT NOT NULL,
	created INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	hash    TEXT NOT NULL UNIQUE,
	name    TEXT NOT NULL,
	size    INTEGER NOT NULL,
	created INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS shelves (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id      INTEGER NOT NULL UNIQUE,
	text         TEXT NOT NULL DEFAULT '',
	created      INTEGER NOT NULL,
	last_edited  INTEGER NOT NULL,
	times_edited INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS note_tags (
	note_id INTEGER NOT NULL,
	tag_id  INTEGER NOT NULL,
	UNIQUE(note_id, tag_id)
);

CREATE TABLE IF NOT EXISTS note_files (
	note_id INTEGER NOT NULL,
	file_id INTEGER NOT NULL,
	UNIQUE(note_id, file_id)
);

CREATE TABLE IF NOT EXISTS shelf_files (
	shelf_id INTEGER NOT NULL,
	file_id  INTEGER NOT NULL,
	UNIQUE(shelf_id, file_id)
);

CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id);
CREATE INDEX IF NOT EXISTS idx_tags_user ON tags(user_id);
CREATE INDEX IF NOT EXISTS idx_files_user ON files(user_id);
CREATE INDEX IF NOT EXISTS idx_note_tags_tag ON note_tags(tag_id);
CREATE INDEX IF NOT EXISTS idx_note_files_file ON note_files(file_id);
CREATE INDEX IF NOT EXISTS idx_shelf_files_file ON shelf_files(file_id);
`

// DB wraps a sqlx.DB with store-specific operations.
type DB struct {
	conn *sqlx.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sqlx.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// classify maps driver errors to the service taxonomy. Row misses become
// NotFound, constraint violations InvalidArgument, everything else Internal.
// The driver error stays in the message for logs but callers only match the
// wrapped sentinel.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store: %s: %w", op, apperr.ErrNotFound)
	}
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("store: %s: %v: %w", op, err, apperr.ErrInvalidArgument)
	}
	return fmt.Errorf("store: %s: %v: %w", op, err, apperr.ErrInternal)
}

// requireOneRow converts a zero-affected-rows result into NotFound.
func requireOneRow(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(op, err)
	}
	if n == 0 {
		return fmt.Errorf("store: %s: no rows affected: %w", op, apperr.ErrNotFound)
	}
	return nil
}
