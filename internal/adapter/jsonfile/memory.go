// Package jsonfile persists chat memory as a JSON array on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pavnask/rag-local-fork/internal/domain"
)

// MemoryStore implements chat.MemoryStore on a JSON file. The whole file is
// rewritten on every change through a temp file and rename.
type MemoryStore struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries []domain.MemoryEntry
	nextID  int64
}

// Open loads the file at path. A missing file starts an empty memory.
func Open(path string, logger *slog.Logger) (*MemoryStore, error) {
	s := &MemoryStore{path: path, logger: logger, nextID: 1}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("memory file not found, starting empty", "path", path)
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read memory file: %w", err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, fmt.Errorf("decode memory file %s: %w", path, err)
		}
	}
	for _, e := range s.entries {
		if e.ID >= s.nextID {
			s.nextID = e.ID + 1
		}
	}
	return s, nil
}

// Save appends an entry and returns its id.
func (s *MemoryStore) Save(_ context.Context, e domain.MemoryEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextID
	if e.Timestamp.IsZero() {
		e.Timestamp = domain.Now()
	}
	s.entries = append(s.entries, e)
	if err := s.flush(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return 0, err
	}
	s.nextID++
	return e.ID, nil
}

// Feedback records a rating on an entry.
func (s *MemoryStore) Feedback(_ context.Context, id int64, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == id {
			prev := s.entries[i].Feedback
			s.entries[i].Feedback = score
			if err := s.flush(); err != nil {
				s.entries[i].Feedback = prev
				return err
			}
			return nil
		}
	}
	return fmt.Errorf("%w: %d", domain.ErrEntryNotFound, id)
}

// Recent returns up to limit entries of a session, newest first.
func (s *MemoryStore) Recent(_ context.Context, session string, limit int) ([]domain.MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.MemoryEntry
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].SessionID == session {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

// Clear deletes every entry of a session.
func (s *MemoryStore) Clear(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]domain.MemoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.SessionID != session {
			kept = append(kept, e)
		}
	}
	prev := s.entries
	s.entries = kept
	if err := s.flush(); err != nil {
		s.entries = prev
		return err
	}
	return nil
}

// Close is a no-op; every change is already on disk.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) flush() error {
	entries := s.entries
	if entries == nil {
		entries = []domain.MemoryEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode memory: %w", err)
	}
	return writeAtomic(s.path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace memory file: %w", err)
	}
	return nil
}
