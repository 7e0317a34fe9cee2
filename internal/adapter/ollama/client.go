package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pavnask/rag-local-fork/internal/llm"
	"github.com/pavnask/rag-local-fork/internal/observability"
)

// Client implements llm.Provider against a local Ollama server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	chatModel  string
	embedModel string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an Ollama client for the given chat and embedding models.
func NewClient(baseURL, chatModel, embedModel string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		chatModel:  chatModel,
		embedModel: embedModel,
		logger:     logger,
		metrics:    metrics,
	}
}

// Name identifies the backend.
func (c *Client) Name() string {
	return "ollama"
}

// Chat sends a non-streaming chat request to /api/chat.
func (c *Client) Chat(ctx context.Context, prompt *llm.Prompt) (*llm.Response, error) {
	req := chatRequest{Model: c.chatModel, Stream: false}
	if prompt.System != "" {
		req.Messages = append(req.Messages, message{Role: string(llm.RoleSystem), Content: prompt.System})
	}
	for _, m := range prompt.Messages {
		req.Messages = append(req.Messages, message{Role: string(m.Role), Content: m.Content})
	}

	var resp chatResponse
	if err := c.post(ctx, "/api/chat", "chat", req, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		c.metrics.LLMRequests.WithLabelValues("chat", "empty").Inc()
		c.logger.Warn("ollama returned empty content", "model", c.chatModel)
	} else {
		c.metrics.LLMRequests.WithLabelValues("chat", "success").Inc()
	}
	return &llm.Response{Content: resp.Message.Content, Model: resp.Model}, nil
}

// Embed requests an embedding from /api/embeddings.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	if err := c.post(ctx, "/api/embeddings", "embed", embedRequest{Model: c.embedModel, Prompt: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		c.metrics.LLMRequests.WithLabelValues("embed", "empty").Inc()
		return nil, fmt.Errorf("ollama returned an empty embedding for model %s", c.embedModel)
	}
	c.metrics.LLMRequests.WithLabelValues("embed", "success").Inc()

	vec := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (c *Client) post(ctx context.Context, path, operation string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.LLMDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.LLMRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("ollama %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.LLMRequests.WithLabelValues(operation, "error").Inc()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ollama API error: %w", &llm.StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.LLMRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

// Ollama API request and response types.

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Model   string  `json:"model"`
	Message message `json:"message"`
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}
