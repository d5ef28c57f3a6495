// Package sqlitestore provides a SQLite-backed storage.Provider for running
// contextbridge without a Notion workspace.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'Not started',
	goal       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS context_entries (
	id            TEXT PRIMARY KEY,
	chat_number   INTEGER NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	session_id    TEXT NOT NULL DEFAULT '',
	summary       TEXT NOT NULL DEFAULT '',
	key_decisions TEXT NOT NULL DEFAULT '',
	next_actions  TEXT NOT NULL DEFAULT '',
	handoff       TEXT NOT NULL DEFAULT '',
	chat_type     TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT '',
	tags          TEXT NOT NULL DEFAULT '[]',
	project_id    TEXT REFERENCES projects(id),
	most_recent   INTEGER NOT NULL DEFAULT 0,
	date          DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_projects_name ON projects(name);
CREATE INDEX IF NOT EXISTS idx_entries_project ON context_entries(project_id, most_recent);
CREATE INDEX IF NOT EXISTS idx_entries_chat_number ON context_entries(chat_number);
`

// Store implements storage.Provider and storage.Publisher on SQLite.
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for project creation stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string, opts ...Option) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlitestore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlitestore: apply schema: %w", err)
	}
	s := &Store{conn: conn, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
