package session

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a SQLite-backed session store. It satisfies the same
// Store contract as MemoryStore but survives process restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Appends to a single session must serialize in arrival order. A
	// single connection gives SQLite that ordering for free; the write
	// volume of a chat gateway does not need a pool.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

// migrate creates the database schema.
func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS turns (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Append adds a turn to the session, creating the session row if absent.
// Ordering comes from a per-session monotonic seq rather than wall-clock
// timestamps, which can tie.
func (s *SQLiteStore) Append(sessionID string, role Role, content string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.Exec(
		`INSERT INTO sessions (id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		sessionID, now,
	); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO turns (id, session_id, seq, role, content, created_at)
		 VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE session_id = ?), ?, ?, ?)`,
		uuid.New().String(), sessionID, sessionID, string(role), content, now,
	); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	return tx.Commit()
}

// Turns returns the session's turns in append order.
func (s *SQLiteStore) Turns(sessionID string) ([]Turn, error) {
	rows, err := s.db.Query(
		`SELECT role, content, created_at FROM turns WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var role, content string
		var at time.Time
		if err := rows.Scan(&role, &content, &at); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, Turn{Role: ParseRole(role), Content: content, Timestamp: at})
	}
	return turns, rows.Err()
}

// Stats returns store-level counters.
func (s *SQLiteStore) Stats() map[string]any {
	stats := map[string]any{"backend": "sqlite"}

	var sessions, turns int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&sessions); err == nil {
		stats["sessions"] = sessions
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM turns`).Scan(&turns); err == nil {
		stats["turns"] = turns
	}
	return stats
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
