package learning

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// FileStore persists Memory as a single pretty-printed JSON document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("learning: failed to create directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load reads the document if present; ok is false on first run.
func (s *FileStore) Load() (Memory, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Memory{}, false, nil
	}
	if err != nil {
		return Memory{}, false, fmt.Errorf("learning: failed to read memory file: %w", err)
	}

	var m Memory
	if err := json.Unmarshal(data, &m); err != nil {
		return Memory{}, false, fmt.Errorf("learning: failed to decode memory file: %w", err)
	}
	return m, true, nil
}

// Save overwrites the document with the current memory.
func (s *FileStore) Save(m Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("learning: failed to encode memory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("learning: failed to write memory file: %w", err)
	}
	return nil
}

// SQLiteStore persists Memory as a single-row document, selected via
// MEMORY_BACKEND=sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("learning: failed to open sqlite database: %w", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS learning_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	payload TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("learning: failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads the single stored document, if any.
func (s *SQLiteStore) Load() (Memory, bool, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM learning_state WHERE id = 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return Memory{}, false, nil
	}
	if err != nil {
		return Memory{}, false, fmt.Errorf("learning: failed to query memory: %w", err)
	}

	var m Memory
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return Memory{}, false, fmt.Errorf("learning: failed to decode memory: %w", err)
	}
	return m, true, nil
}

// Save upserts the single-row document.
func (s *SQLiteStore) Save(m Memory) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("learning: failed to encode memory: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO learning_state (id, payload) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("learning: failed to upsert memory: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
