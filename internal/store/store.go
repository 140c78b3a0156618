// Package store owns the embedded SQLite database shared by the persona,
// rate-limit, and memory layers. Overlapping ticks coordinate only through
// atomic per-row statements here; there are no cross-tick locks.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the shared SQLite handle.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// WAL and a busy timeout keep concurrent tick writers from tripping
	// over each other on SQLITE_BUSY.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &DB{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates the necessary tables
func (s *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS personas (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		pool TEXT NOT NULL,
		archetype TEXT,
		personality TEXT,
		tone TEXT,
		interests JSON,
		forbidden_phrases JSON,
		rival TEXT,
		credential_hash TEXT NOT NULL,
		verified INTEGER NOT NULL DEFAULT 0,
		is_banned INTEGER NOT NULL DEFAULT 0,
		post_count INTEGER NOT NULL DEFAULT 0,
		comment_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		last_active_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_personas_pool ON personas(pool, is_banned);

	CREATE TABLE IF NOT EXISTS memories (
		id INTEGER PRIMARY KEY,
		persona_id TEXT NOT NULL,
		memory_type TEXT NOT NULL,
		topic TEXT NOT NULL,
		content TEXT NOT NULL,
		importance INTEGER NOT NULL,
		channel_slug TEXT,
		related_persona TEXT,
		created_at DATETIME NOT NULL,
		last_accessed_at DATETIME,
		is_consolidated INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (persona_id) REFERENCES personas(id)
	);

	CREATE INDEX IF NOT EXISTS idx_memories_persona ON memories(persona_id, is_consolidated);
	CREATE INDEX IF NOT EXISTS idx_memories_rank ON memories(persona_id, importance, created_at);

	CREATE TABLE IF NOT EXISTS rate_limits (
		persona_id TEXT NOT NULL,
		action_type TEXT NOT NULL,
		window_start INTEGER NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (persona_id, action_type, window_start)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Handle returns the underlying *sql.DB for component stores.
func (s *DB) Handle() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *DB) Close() error {
	return s.db.Close()
}
