package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitProvider throttles calls to the wrapped provider.
type RateLimitProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimitProvider allows perSecond calls per second with a burst of one.
// perSecond <= 0 disables throttling.
func NewRateLimitProvider(inner Provider, perSecond float64) *RateLimitProvider {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &RateLimitProvider{inner: inner, limiter: rate.NewLimiter(limit, 1)}
}

// Name returns the wrapped provider's name.
func (r *RateLimitProvider) Name() string {
	return r.inner.Name()
}

// Chat waits for a token, then delegates.
func (r *RateLimitProvider) Chat(ctx context.Context, prompt *Prompt) (*Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Chat(ctx, prompt)
}

// Embed waits for a token, then delegates.
func (r *RateLimitProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, text)
}
