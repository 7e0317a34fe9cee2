package pipeline_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/llm"
	"github.com/pavnask/rag-local-fork/internal/observability"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]*domain.Observation
	errs    []error
	calls   int
}

func (m *mockExtractor) ExtractBatch(_ context.Context, _ int) ([]*domain.Observation, error) {
	i := m.calls
	m.calls++
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	if i < len(m.batches) {
		return m.batches[i], err
	}
	if err != nil {
		return nil, err
	}
	return nil, io.EOF
}

type mockClassifier struct {
	failIDs map[string]bool
}

func (m *mockClassifier) Classify(_ context.Context, obs *domain.Observation) (domain.Classification, error) {
	if m.failIDs[obs.ID] {
		return domain.Classification{}, errors.New("bad observation")
	}
	return domain.Classification{ObservationID: obs.ID, Text: obs.Text, Action: domain.ActionTolerate, Method: domain.MethodKeyword}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	failures int
	calls    int
	loaded   []domain.Classification
}

func (m *mockLoader) LoadBatch(_ context.Context, results []domain.Classification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return errors.New("sink unavailable")
	}
	m.loaded = append(m.loaded, results...)
	return nil
}

// tableEmbedder returns fixed vectors per text; unknown texts map to fallback.
type tableEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	err      error
	texts    []string
}

func (e *tableEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return e.fallback, nil
}

func (e *tableEmbedder) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.texts)
}

type mockChatter struct {
	mu      sync.Mutex
	errs    []error
	reply   string
	prompts []*llm.Prompt
}

func (m *mockChatter) Chat(_ context.Context, p *llm.Prompt) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.prompts)
	m.prompts = append(m.prompts, p)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	return &llm.Response{Content: m.reply}, nil
}

func (m *mockChatter) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func obs(id, text string) *domain.Observation {
	return domain.NewObservation(id, text, map[string]string{domain.ColObservationText: text})
}
