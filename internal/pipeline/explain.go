package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"

	"github.com/pavnask/rag-local-fork/internal/llm"
)

// Notes written in place of an explanation when the model cannot provide one.
const (
	QuotaExceededNote = "⚠️ AI API quota exceeded."
	explainErrorNote  = "❌ AI explanation error: %s"
)

// ExplainRequest asks for one explanation.
type ExplainRequest struct {
	Key    string
	Prompt *llm.Prompt
}

// ExplainQueue processes explanation requests one at a time, in order.
// Rate-limited requests are retried after 2^attempt * base plus up to jitter;
// after MaxAttempts the quota note is recorded. Any other error records an
// error note and moves on.
type ExplainQueue struct {
	chat        llm.Chatter
	logger      *slog.Logger
	MaxAttempts int
	Base        time.Duration
	Jitter      time.Duration

	sleep   func(ctx context.Context, d time.Duration) bool
	pending []ExplainRequest
}

// NewExplainQueue creates a queue with 5 attempts, 1s base and 2s jitter.
func NewExplainQueue(chat llm.Chatter, logger *slog.Logger) *ExplainQueue {
	return &ExplainQueue{
		chat:        chat,
		logger:      logger,
		MaxAttempts: 5,
		Base:        time.Second,
		Jitter:      2 * time.Second,
		sleep:       sharedretry.SleepWithContext,
	}
}

// Enqueue adds a request to the back of the queue.
func (q *ExplainQueue) Enqueue(req ExplainRequest) {
	q.pending = append(q.pending, req)
}

// Len returns the number of pending requests.
func (q *ExplainQueue) Len() int {
	return len(q.pending)
}

// Process drains the queue and returns the explanation for every key. When
// the context ends, unprocessed requests are left in the queue.
func (q *ExplainQueue) Process(ctx context.Context) map[string]string {
	out := make(map[string]string, len(q.pending))
	for len(q.pending) > 0 {
		if ctx.Err() != nil {
			return out
		}
		req := q.pending[0]
		q.pending = q.pending[1:]
		out[req.Key] = q.explain(ctx, req)
	}
	return out
}

func (q *ExplainQueue) explain(ctx context.Context, req ExplainRequest) string {
	for attempt := range q.MaxAttempts {
		resp, err := q.chat.Chat(ctx, req.Prompt)
		if err == nil {
			return llm.ContentOrFallback(resp)
		}
		if !llm.IsRateLimited(err) {
			q.logger.Warn("explanation failed", "key", req.Key, "error", err)
			return fmt.Sprintf(explainErrorNote, err)
		}

		wait := q.Base<<attempt + q.jitter()
		q.logger.Warn("rate limit hit, retrying explanation", "key", req.Key, "attempt", attempt+1, "wait", wait)
		if !q.sleep(ctx, wait) {
			return fmt.Sprintf(explainErrorNote, ctx.Err())
		}
	}
	q.logger.Error("skipping explanation after max retries", "key", req.Key)
	return QuotaExceededNote
}

func (q *ExplainQueue) jitter() time.Duration {
	if q.Jitter <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(q.Jitter)))
}

// UsefulnessPrompt asks the model why a weather recommendation is useful.
func UsefulnessPrompt(location, sky, rain, wind string, items []string, recommendation string) *llm.Prompt {
	var b strings.Builder
	b.WriteString("The AI analyzed weather conditions, observations, and past usage patterns.\n")
	fmt.Fprintf(&b, "Location: %s\n", location)
	fmt.Fprintf(&b, "Weather: %s, %s, %s\n", sky, rain, wind)
	fmt.Fprintf(&b, "Observed Items: %s\n", strings.Join(items, ", "))
	fmt.Fprintf(&b, "Recommendation: %s\n\n", recommendation)
	b.WriteString("Explain why this recommendation is useful in simple terms.")
	return llm.UserPrompt("", b.String())
}
