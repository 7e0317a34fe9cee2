package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pavnask/rag-local-fork/internal/domain"
)

// SliceExtractor serves an in-memory observation list in batches.
type SliceExtractor struct {
	mu   sync.Mutex
	obs  []*domain.Observation
	next int
}

// NewSliceExtractor creates an extractor over obs.
func NewSliceExtractor(obs []*domain.Observation) *SliceExtractor {
	return &SliceExtractor{obs: obs}
}

// ExtractBatch returns the next batch, or io.EOF when every observation has
// been served.
func (s *SliceExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]*domain.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.obs) {
		return nil, io.EOF
	}
	if batchSize <= 0 {
		batchSize = len(s.obs)
	}
	end := min(s.next+batchSize, len(s.obs))
	batch := s.obs[s.next:end]
	s.next = end
	return batch, nil
}

// Collector is a loader that keeps every classification in load order.
type Collector struct {
	mu      sync.Mutex
	results []domain.Classification
}

// LoadBatch appends results.
func (c *Collector) LoadBatch(_ context.Context, results []domain.Classification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, results...)
	return nil
}

// Results returns a copy of the collected classifications.
func (c *Collector) Results() []domain.Classification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Classification, len(c.results))
	copy(out, c.results)
	return out
}

// Counts returns the number of classifications per action.
func (c *Collector) Counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[string]int)
	for _, r := range c.results {
		counts[r.Action]++
	}
	return counts
}

// MultiLoader fans a batch out to several loaders in order. The first
// failure stops the batch, so a later loader only sees batches every earlier
// loader accepted. Put in-memory collectors last.
type MultiLoader []BatchLoader

// LoadBatch forwards results to each loader.
func (m MultiLoader) LoadBatch(ctx context.Context, results []domain.Classification) error {
	for i, l := range m {
		if err := l.LoadBatch(ctx, results); err != nil {
			return fmt.Errorf("loader %d: %w", i, err)
		}
	}
	return nil
}
