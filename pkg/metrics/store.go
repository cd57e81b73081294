package metrics

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// FileStore persists Counters as a single pretty-printed JSON document,
// matching the spec-mandated default backend.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("metrics: failed to create directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load reads the document if present; ok is false on first run.
func (s *FileStore) Load() (Counters, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Counters{}, false, nil
	}
	if err != nil {
		return Counters{}, false, fmt.Errorf("metrics: failed to read counters file: %w", err)
	}

	var c Counters
	if err := json.Unmarshal(data, &c); err != nil {
		return Counters{}, false, fmt.Errorf("metrics: failed to decode counters file: %w", err)
	}
	return c, true, nil
}

// Save overwrites the document with the current counters.
func (s *FileStore) Save(c Counters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("metrics: failed to encode counters: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("metrics: failed to write counters file: %w", err)
	}
	return nil
}

// SQLiteStore persists Counters as a single-row document inside a pure-Go
// SQLite database, selected via METRICS_BACKEND=sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("metrics: failed to open sqlite database: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS metrics_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	payload TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("metrics: failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads the single stored document, if any.
func (s *SQLiteStore) Load() (Counters, bool, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM metrics_state WHERE id = 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return Counters{}, false, nil
	}
	if err != nil {
		return Counters{}, false, fmt.Errorf("metrics: failed to query counters: %w", err)
	}

	var c Counters
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Counters{}, false, fmt.Errorf("metrics: failed to decode counters: %w", err)
	}
	return c, true, nil
}

// Save upserts the single-row document.
func (s *SQLiteStore) Save(c Counters) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("metrics: failed to encode counters: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO metrics_state (id, payload) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("metrics: failed to upsert counters: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
