package kv

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang-oscnode/internal/port"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a KeyValueStore backed by a single SQLite table.
type SQLiteStore struct {
	db        *sql.DB
	namespace string
}

// Ensure SQLiteStore implements the KeyValueStore port
var _ port.KeyValueStore = (*SQLiteStore)(nil)

// OpenSQLiteStore opens (creating if needed) the preference database at path.
func OpenSQLiteStore(path, namespace string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preference directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preference db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set preference db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set preference db busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS preferences (
	namespace TEXT NOT NULL,
	key TEXT NOT NULL,
	value INTEGER NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (namespace, key)
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize preferences schema: %w", err)
	}

	return &SQLiteStore{db: db, namespace: namespace}, nil
}

// GetUint returns the stored value and whether the key was present.
func (s *SQLiteStore) GetUint(key string) (uint32, bool, error) {
	var value int64
	err := s.db.QueryRow(
		`SELECT value FROM preferences WHERE namespace = ? AND key = ?`,
		s.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	if value < 0 || value > int64(^uint32(0)) {
		return 0, false, fmt.Errorf("preference %s holds out of range value %d", key, value)
	}
	return uint32(value), true, nil
}

// PutUint stores a value.
func (s *SQLiteStore) PutUint(key string, value uint32) error {
	_, err := s.db.Exec(`
INSERT INTO preferences (namespace, key, value, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(namespace, key) DO UPDATE SET
	value = excluded.value,
	updated_at = excluded.updated_at`,
		s.namespace, key, int64(value), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
