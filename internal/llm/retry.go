package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// RetryConfig configures retry behavior for model calls.
type RetryConfig struct {
	MaxRetries int           // retry attempts after the first call (0 = no retries)
	RetryDelay time.Duration // initial delay between retries
	MaxDelay   time.Duration // cap for the exponential backoff
	Timeout    time.Duration // per-attempt timeout
}

// DefaultRetryConfig returns the configuration used when none is supplied.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 5,
		RetryDelay: time.Second,
		MaxDelay:   30 * time.Second,
		Timeout:    time.Minute,
	}
}

// RetryProvider wraps a Provider with per-attempt timeouts and exponential backoff.
type RetryProvider struct {
	inner  Provider
	config *RetryConfig
}

// NewRetryProvider wraps inner with retry logic. A nil config uses the defaults.
func NewRetryProvider(inner Provider, config *RetryConfig) *RetryProvider {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &RetryProvider{inner: inner, config: config}
}

// Name returns the wrapped provider's name.
func (r *RetryProvider) Name() string {
	return r.inner.Name()
}

// Chat sends a prompt, retrying transient failures.
func (r *RetryProvider) Chat(ctx context.Context, prompt *Prompt) (*Response, error) {
	return retry(ctx, r, func(ctx context.Context) (*Response, error) {
		return r.inner.Chat(ctx, prompt)
	})
}

// Embed embeds text, retrying transient failures.
func (r *RetryProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return retry(ctx, r, func(ctx context.Context) ([]float32, error) {
		return r.inner.Embed(ctx, text)
	})
}

func retry[T any](ctx context.Context, r *RetryProvider, call func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(r.backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
		out, err := call(attemptCtx)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !IsRetryable(err) {
			return zero, fmt.Errorf("non-retryable error: %w", err)
		}
	}

	return zero, fmt.Errorf("max retries (%d) exceeded: %w", r.config.MaxRetries, lastErr)
}

// backoff returns RetryDelay * 2^(attempt-1), capped at MaxDelay.
func (r *RetryProvider) backoff(attempt int) time.Duration {
	delay := r.config.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= r.config.MaxDelay {
			return r.config.MaxDelay
		}
	}
	return delay
}

// IsRetryable reports whether err is worth another attempt: timeouts, rate
// limits and server errors are; caller cancellation and client errors are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= http.StatusInternalServerError
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// IsRateLimited reports whether err is a 429 from the model server.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusTooManyRequests
}
