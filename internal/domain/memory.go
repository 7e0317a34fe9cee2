package domain

import (
	"errors"
	"time"
)

// ErrEntryNotFound is returned when feedback targets an unknown memory entry.
var ErrEntryNotFound = errors.New("memory entry not found")

// GlobalSession is the shared session id.
const GlobalSession = "global"

// MemoryEntry is one persisted chat exchange.
type MemoryEntry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Query     string    `json:"user_query"`
	Response  string    `json:"ai_response"`
	Role      string    `json:"role"`
	Feedback  int       `json:"feedback"`
	Timestamp time.Time `json:"timestamp"`
}

// Document is an indexed observation with its metadata.
type Document struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Category   string    `json:"category"`
	Suggestion string    `json:"suggestion"`
	Vector     []float32 `json:"-"`
}

// Hit is a search result with similarity in [0,1].
type Hit struct {
	Document Document
	Score    float64
}
