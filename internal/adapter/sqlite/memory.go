// Package sqlite persists chat memory in a SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pavnask/rag-local-fork/internal/domain"
)

const createTable = `
CREATE TABLE IF NOT EXISTS chat_memory (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT,
	user_query TEXT,
	ai_response TEXT,
	role TEXT,
	feedback INTEGER DEFAULT 0,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
)`

// Columns added by later versions of the table.
var migrations = []struct {
	column string
	def    string
}{
	{"role", "TEXT"},
	{"feedback", "INTEGER DEFAULT 0"},
	{"session_id", "TEXT"},
}

// MemoryStore implements chat.MemoryStore on SQLite.
type MemoryStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the memory database at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*MemoryStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create memory dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &MemoryStore{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *MemoryStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create chat_memory: %w", err)
	}

	existing, err := s.columns(ctx)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if existing[m.column] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE chat_memory ADD COLUMN %s %s", m.column, m.def)); err != nil {
			return fmt.Errorf("add column %s: %w", m.column, err)
		}
		s.logger.Info("memory table migrated", "column", m.column)
	}
	return nil
}

func (s *MemoryStore) columns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(chat_memory)")
	if err != nil {
		return nil, fmt.Errorf("inspect chat_memory: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// Save inserts an entry and returns its id.
func (s *MemoryStore) Save(ctx context.Context, e domain.MemoryEntry) (int64, error) {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = domain.Now()
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO chat_memory (session_id, user_query, ai_response, role, feedback, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		e.SessionID, e.Query, e.Response, e.Role, e.Feedback, ts.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("save memory: %w", err)
	}
	return res.LastInsertId()
}

// Feedback records a rating on an entry.
func (s *MemoryStore) Feedback(ctx context.Context, id int64, score int) error {
	res, err := s.db.ExecContext(ctx, "UPDATE chat_memory SET feedback = ? WHERE id = ?", score, id)
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", domain.ErrEntryNotFound, id)
	}
	return nil
}

// Recent returns up to limit entries of a session, newest first.
func (s *MemoryStore) Recent(ctx context.Context, session string, limit int) ([]domain.MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, user_query, ai_response, COALESCE(role, ''), COALESCE(feedback, 0), COALESCE(timestamp, '')
		 FROM chat_memory WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		session, limit)
	if err != nil {
		return nil, fmt.Errorf("query memory: %w", err)
	}
	defer rows.Close()

	var out []domain.MemoryEntry
	for rows.Next() {
		var (
			e  domain.MemoryEntry
			ts string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Query, &e.Response, &e.Role, &e.Feedback, &ts); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		e.Timestamp = parseTimestamp(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear deletes every entry of a session.
func (s *MemoryStore) Clear(ctx context.Context, session string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chat_memory WHERE session_id = ?", session); err != nil {
		return fmt.Errorf("clear memory: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *MemoryStore) Close() error {
	return s.db.Close()
}

// parseTimestamp accepts both RFC 3339 values and SQLite's CURRENT_TIMESTAMP format.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
