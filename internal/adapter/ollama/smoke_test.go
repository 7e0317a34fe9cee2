//go:build ollama

package ollama

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/pavnask/rag-local-fork/internal/llm"
	"github.com/pavnask/rag-local-fork/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSmoke_OllamaServer runs against a live Ollama server.
// Run with: OLLAMA_URL=http://localhost:11434 go test -tags ollama ./internal/adapter/ollama/...
func TestSmoke_OllamaServer(t *testing.T) {
	url := os.Getenv("OLLAMA_URL")
	if url == "" {
		t.Skip("OLLAMA_URL not set")
	}

	c := NewClient(url, "llama3.2", "all-minilm", 2*time.Minute,
		slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
	ctx := context.Background()

	vec, err := c.Embed(ctx, "CPU usage is above 90% on the batch server")
	require.NoError(t, err)
	assert.Len(t, vec, 384)

	resp, err := c.Chat(ctx, llm.UserPrompt("Answer with one word.", "Say hello."))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Content)
	t.Logf("model=%s content=%q", resp.Model, resp.Content)
}
