// Package llm defines the chat and embedding contracts shared by every model
// backend, plus retry and rate-limit decorators.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/pavnask/rag-local-fork/internal/domain"
)

// Role identifies who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Prompt is the full input to a chat call.
type Prompt struct {
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`
}

// UserPrompt builds a prompt with an optional system message and one user turn.
func UserPrompt(system, user string) *Prompt {
	return &Prompt{System: system, Messages: []Message{{Role: RoleUser, Content: user}}}
}

// Response wraps a chat completion.
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// Chatter sends a prompt and returns a completion.
type Chatter interface {
	Chat(ctx context.Context, prompt *Prompt) (*Response, error)
}

// Provider is a backend able to both chat and embed.
type Provider interface {
	Chatter
	domain.Embedder
	Name() string
}

// ContentOrFallback returns the trimmed response content, or domain.NoAIResponse
// when the response is missing or blank.
func ContentOrFallback(resp *Response) string {
	if resp == nil {
		return domain.NoAIResponse
	}
	if s := strings.TrimSpace(resp.Content); s != "" {
		return s
	}
	return domain.NoAIResponse
}

// StatusError is a non-200 answer from a model server.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}
