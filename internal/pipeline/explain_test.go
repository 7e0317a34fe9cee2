package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pavnask/rag-local-fork/internal/llm"
	"github.com/pavnask/rag-local-fork/internal/pipeline"
)

func fastQueue(chat llm.Chatter) *pipeline.ExplainQueue {
	q := pipeline.NewExplainQueue(chat, discardLogger())
	q.Base = time.Millisecond
	q.Jitter = 0
	return q
}

func TestExplainQueue_ProcessesInOrder(t *testing.T) {
	chat := &mockChatter{reply: " Because it rains. "}
	q := fastQueue(chat)
	q.Enqueue(pipeline.ExplainRequest{Key: "row-1", Prompt: llm.UserPrompt("", "first")})
	q.Enqueue(pipeline.ExplainRequest{Key: "row-2", Prompt: llm.UserPrompt("", "second")})
	assert.Equal(t, 2, q.Len())

	out := q.Process(context.Background())

	assert.Equal(t, map[string]string{"row-1": "Because it rains.", "row-2": "Because it rains."}, out)
	assert.Zero(t, q.Len())
	assert.Equal(t, "first", chat.prompts[0].Messages[0].Content)
	assert.Equal(t, "second", chat.prompts[1].Messages[0].Content)
}

func TestExplainQueue_RetriesRateLimit(t *testing.T) {
	limited := &llm.StatusError{Code: http.StatusTooManyRequests}
	chat := &mockChatter{reply: "ok", errs: []error{limited, limited}}
	q := fastQueue(chat)
	q.Enqueue(pipeline.ExplainRequest{Key: "k", Prompt: llm.UserPrompt("", "p")})

	out := q.Process(context.Background())

	assert.Equal(t, "ok", out["k"])
	assert.Equal(t, 3, chat.calls())
}

func TestExplainQueue_QuotaNoteAfterMaxAttempts(t *testing.T) {
	limited := &llm.StatusError{Code: http.StatusTooManyRequests}
	chat := &mockChatter{errs: []error{limited, limited, limited, limited, limited, limited}}
	q := fastQueue(chat)
	q.MaxAttempts = 3
	q.Enqueue(pipeline.ExplainRequest{Key: "k", Prompt: llm.UserPrompt("", "p")})
	q.Enqueue(pipeline.ExplainRequest{Key: "next", Prompt: llm.UserPrompt("", "p")})

	out := q.Process(context.Background())

	assert.Equal(t, pipeline.QuotaExceededNote, out["k"])
	assert.Equal(t, pipeline.QuotaExceededNote, out["next"])
	assert.Equal(t, 6, chat.calls())
}

func TestExplainQueue_OtherErrorRecordsNote(t *testing.T) {
	chat := &mockChatter{reply: "fine", errs: []error{errors.New("connection refused")}}
	q := fastQueue(chat)
	q.Enqueue(pipeline.ExplainRequest{Key: "a", Prompt: llm.UserPrompt("", "p")})
	q.Enqueue(pipeline.ExplainRequest{Key: "b", Prompt: llm.UserPrompt("", "p")})

	out := q.Process(context.Background())

	assert.Equal(t, "❌ AI explanation error: connection refused", out["a"])
	assert.Equal(t, "fine", out["b"])
}

func TestExplainQueue_StopsOnCancelledContext(t *testing.T) {
	q := fastQueue(&mockChatter{reply: "x"})
	q.Enqueue(pipeline.ExplainRequest{Key: "a", Prompt: llm.UserPrompt("", "p")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, q.Process(ctx))
	assert.Equal(t, 1, q.Len())
}

func TestUsefulnessPrompt(t *testing.T) {
	p := pipeline.UsefulnessPrompt("Seattle", "Cloudy", "Heavy", "Calm", []string{"umbrella", "boots"}, "Carry an umbrella.")
	content := p.Messages[0].Content
	assert.Contains(t, content, "Location: Seattle\n")
	assert.Contains(t, content, "Weather: Cloudy, Heavy, Calm\n")
	assert.Contains(t, content, "Observed Items: umbrella, boots\n")
	assert.Contains(t, content, "Explain why this recommendation is useful in simple terms.")
}
