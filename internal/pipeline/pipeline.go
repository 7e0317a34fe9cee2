package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"

	"github.com/pavnask/rag-local-fork/internal/domain"
	"github.com/pavnask/rag-local-fork/internal/observability"
)

// BatchExtractor reads up to batchSize observations from the source. It
// returns io.EOF once the source is drained.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]*domain.Observation, error)
}

// Classifier turns one observation into a classification.
type Classifier interface {
	Classify(ctx context.Context, obs *domain.Observation) (domain.Classification, error)
}

// BatchLoader writes multiple classifications to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, results []domain.Classification) error
}

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline orchestrates the extract-classify-load loop.
type Pipeline struct {
	extractor  BatchExtractor
	classifier Classifier
	loader     BatchLoader
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
	batchSize  int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, c Classifier, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:  e,
		classifier: c,
		loader:     l,
		logger:     logger,
		metrics:    metrics,
		batchSize:  batchSize,
	}
}

// CheckReadiness returns nil once the pipeline has loaded at least one batch.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not classified any observations yet")
	}
	return nil
}

// Ready reports whether a batch has been loaded.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Run executes the batch loop until the source is drained or the context is
// cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one extract-classify-load cycle. Returns false if the
// pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if errors.Is(err, io.EOF) && len(batch) == 0 {
		p.logger.Info("source drained")
		return false
	}
	if err != nil && !errors.Is(err, io.EOF) {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}
	drained := errors.Is(err, io.EOF)

	if len(batch) == 0 {
		return ctx.Err() == nil && !drained
	}

	p.metrics.ObservationsRead.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))

	results := p.classify(ctx, batch)
	if len(results) > 0 {
		if !p.load(ctx, results, backoff) {
			return false
		}
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
		p.ready.Store(true)
	}
	return !drained
}

// classify runs the classifier over the batch, logging and skipping rows that fail.
func (p *Pipeline) classify(ctx context.Context, batch []*domain.Observation) []domain.Classification {
	results := make([]domain.Classification, 0, len(batch))
	for _, obs := range batch {
		c, err := p.classifier.Classify(ctx, obs)
		if err != nil {
			p.logger.Warn("classify failed, skipping observation", "error", err, "observation_id", obs.ID)
			p.metrics.ClassifyErrors.Inc()
			continue
		}
		if c.ClassifiedAt.IsZero() {
			c.ClassifiedAt = domain.Now()
		}
		p.metrics.MatchOutcomes.WithLabelValues(c.Method).Inc()
		results = append(results, c)
	}
	return results
}

// load retries the same batch with exponential backoff until it succeeds or
// the context ends.
func (p *Pipeline) load(ctx context.Context, results []domain.Classification, backoff *time.Duration) bool {
	for {
		err := p.loader.LoadBatch(ctx, results)
		if err == nil {
			*backoff = initialBackoff
			p.metrics.ObservationsClassified.Add(float64(len(results)))
			return true
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(results))
		if !p.backoffOrStop(ctx, backoff) {
			return false
		}
	}
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the context ended.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sharedretry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = sharedretry.NextBackoff(*backoff, maxBackoff)
	return true
}
