// Package chat is the adaptive-memory IT chatbot: retrieval of the most
// relevant observation, a panel of expert roles answering in parallel, and
// per-session memory with feedback.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/llm"
	"github.com/pavnask/rag-local-fork/internal/observability"
	"github.com/pavnask/rag-local-fork/internal/pipeline"
)

// Replies used when retrieval finds nothing.
const (
	NoRelevantObservation = "No relevant observation found."
	NoSuggestion          = "No suggestion available."
)

// FuzzyCutoff is the minimum WeightedRatio for fuzzy retrieval.
const FuzzyCutoff = 60

// RecentLimit is how many memory entries "retrieve past session" returns.
const RecentLimit = 5

// MemoryStore persists questions and role answers per session.
type MemoryStore interface {
	Save(ctx context.Context, e domain.MemoryEntry) (int64, error)
	Feedback(ctx context.Context, id int64, score int) error
	Recent(ctx context.Context, session string, limit int) ([]domain.MemoryEntry, error)
	Clear(ctx context.Context, session string) error
}

// DocumentIndex stores observation embeddings for nearest-neighbour lookup.
type DocumentIndex interface {
	Reset(ctx context.Context) error
	Add(ctx context.Context, docs []domain.Document) error
	Search(ctx context.Context, vec []float32, k int) ([]domain.Hit, error)
}

// Options configures a Session. Index and Embedder are both required for
// vector retrieval; otherwise Documents are searched fuzzily.
type Options struct {
	SessionID   string
	Memory      MemoryStore
	Index       DocumentIndex
	Embedder    domain.Embedder
	Chat        llm.Chatter
	Roles       []Role
	Documents   []domain.Document
	Threshold   float64
	RoleTimeout time.Duration
	Concurrency int
	Logger      *slog.Logger
	Metrics     *observability.Metrics
}

// Session is one chatbot conversation.
type Session struct {
	id          string
	memory      MemoryStore
	index       DocumentIndex
	embedder    domain.Embedder
	chat        llm.Chatter
	roles       []Role
	docs        []domain.Document
	threshold   float64
	roleTimeout time.Duration
	concurrency int
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewSession creates a session. Blank session IDs get a fresh UUID and nil
// roles default to DefaultRoles.
func NewSession(opts Options) *Session {
	roles := opts.Roles
	if roles == nil {
		roles = DefaultRoles
	}
	id := SessionID(opts.SessionID)
	return &Session{
		id:          id,
		memory:      opts.Memory,
		index:       opts.Index,
		embedder:    opts.Embedder,
		chat:        opts.Chat,
		roles:       roles,
		docs:        opts.Documents,
		threshold:   opts.Threshold,
		roleTimeout: opts.RoleTimeout,
		concurrency: opts.Concurrency,
		logger:      opts.Logger.With("session_id", id),
		metrics:     opts.Metrics,
	}
}

// SessionID returns the trimmed id, or a new UUID when it is blank.
func SessionID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Retrieved is the observation a query is grounded on.
type Retrieved struct {
	Observation string
	Suggestion  string
	Category    string
	Score       float64
	Found       bool
}

func notFound() Retrieved {
	return Retrieved{Observation: NoRelevantObservation, Suggestion: NoSuggestion}
}

// Retrieve finds the observation most relevant to query. Vector retrieval
// requires a similarity strictly above the threshold.
func (s *Session) Retrieve(ctx context.Context, query string) (Retrieved, error) {
	if s.index == nil || s.embedder == nil {
		return s.retrieveFuzzy(query), nil
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return Retrieved{}, fmt.Errorf("embed query: %w", err)
	}
	if domain.IsZero(vec) {
		return Retrieved{}, fmt.Errorf("embed query: %w", domain.ErrZeroVector)
	}
	hits, err := s.index.Search(ctx, vec, 1)
	if err != nil {
		return Retrieved{}, fmt.Errorf("search index: %w", err)
	}
	if len(hits) == 0 || hits[0].Score <= s.threshold {
		return notFound(), nil
	}
	return fromDocument(hits[0].Document, hits[0].Score), nil
}

func (s *Session) retrieveFuzzy(query string) Retrieved {
	texts := make([]string, len(s.docs))
	for i, d := range s.docs {
		texts[i] = d.Text
	}
	m, ok := domain.ExtractOne(query, texts, FuzzyCutoff)
	if !ok {
		return notFound()
	}
	return fromDocument(s.docs[m.Index], float64(m.Score)/100)
}

func fromDocument(d domain.Document, score float64) Retrieved {
	suggestion := d.Suggestion
	if suggestion == "" {
		suggestion = NoSuggestion
	}
	return Retrieved{Observation: d.Text, Suggestion: suggestion, Category: d.Category, Score: score, Found: true}
}

// Answer is one role's reply to a query.
type Answer struct {
	Role    string
	Content string
	Err     error
}

// Ask retrieves the grounding observation and asks every role in parallel.
// Answers come back in role order; a failed role carries its error and is
// not saved to memory.
func (s *Session) Ask(ctx context.Context, query string) ([]Answer, Retrieved, error) {
	ret, err := s.Retrieve(ctx, query)
	if err != nil {
		return nil, Retrieved{}, err
	}
	s.logger.Debug("observation retrieved", "found", ret.Found, "score", ret.Score)

	tasks := make([]pipeline.Task[string], len(s.roles))
	for i, role := range s.roles {
		prompt := RolePrompt(role, query, ret)
		tasks[i] = pipeline.Task[string]{
			Name: role.Name,
			Run: func(ctx context.Context) (string, error) {
				resp, err := s.chat.Chat(ctx, prompt)
				if err != nil {
					return "", err
				}
				return llm.ContentOrFallback(resp), nil
			},
		}
	}

	results := pipeline.FanOut(ctx, s.concurrency, s.roleTimeout, tasks)
	answers := make([]Answer, len(results))
	for i, r := range results {
		answers[i] = Answer{Role: r.Name, Content: r.Value, Err: r.Err}
		if r.Err != nil {
			s.logger.Warn("role failed", "role", r.Name, "error", r.Err)
			s.metrics.RoleFailures.WithLabelValues(r.Name).Inc()
			continue
		}
		_, err := s.memory.Save(ctx, domain.MemoryEntry{
			SessionID: s.id,
			Query:     query,
			Response:  r.Value,
			Role:      r.Name,
		})
		if err != nil {
			return answers, ret, fmt.Errorf("save %s answer: %w", r.Name, err)
		}
	}
	return answers, ret, nil
}

// History returns the most recent entries of the session, newest first.
func (s *Session) History(ctx context.Context) ([]domain.MemoryEntry, error) {
	return s.memory.Recent(ctx, s.id, RecentLimit)
}

// Forget deletes the session's memory.
func (s *Session) Forget(ctx context.Context) error {
	return s.memory.Clear(ctx, s.id)
}

// Rate records feedback on a saved answer.
func (s *Session) Rate(ctx context.Context, id int64, score int) error {
	return s.memory.Feedback(ctx, id, score)
}
