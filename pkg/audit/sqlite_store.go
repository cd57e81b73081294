package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists audit entries to a pure-Go SQLite database. It is an
// alternate backend selected via AUDIT_BACKEND=sqlite; the JSONL FileStore
// remains the default.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path
// and ensures the audit_entries table exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to open sqlite database: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	verdict TEXT NOT NULL,
	intended_action TEXT NOT NULL,
	risk_score REAL NOT NULL,
	payload TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append inserts one entry as its own row, with the full JSON payload kept
// for exact reconstruction alongside indexed columns for querying.
func (s *SQLiteStore) Append(entry Entry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: failed to marshal entry: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO audit_entries (id, verdict, intended_action, risk_score, payload) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Verdict, entry.IntendedAction, entry.RiskScore, string(payload),
	)
	if err != nil {
		return fmt.Errorf("audit: failed to insert entry: %w", err)
	}
	return nil
}

// ReadAll loads entries in insertion order. limit <= 0 means no limit.
func (s *SQLiteStore) ReadAll(limit int) ([]Entry, error) {
	query := `SELECT payload FROM audit_entries ORDER BY seq ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("audit: failed to scan row: %w", err)
		}
		var e Entry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return nil, fmt.Errorf("audit: failed to decode entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
