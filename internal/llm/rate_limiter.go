package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedEmbedder wraps an EmbeddingGenerator with a token-bucket rate
// limiter, throttling outbound embedding calls to a provider's API before
// the circuit breaker and transport ever see the request (§10/§11 provider
// rate-limit tunables).
type RateLimitedEmbedder struct {
	gen     EmbeddingGenerator
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder wraps gen with a limiter allowing reqPerSec
// sustained requests per second and burst bursts above that rate.
// reqPerSec <= 0 defaults to 2, burst <= 0 defaults to 4.
func NewRateLimitedEmbedder(gen EmbeddingGenerator, reqPerSec float64, burst int) *RateLimitedEmbedder {
	if reqPerSec <= 0 {
		reqPerSec = 2
	}
	if burst <= 0 {
		burst = 4
	}
	return &RateLimitedEmbedder{
		gen:     gen,
		limiter: rate.NewLimiter(rate.Limit(reqPerSec), burst),
	}
}

// Embed blocks until the limiter admits the request (or ctx is done), then
// delegates to the wrapped generator.
func (r *RateLimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		// Wait fails early, without a wrapped context error, when the
		// reservation would end after ctx's deadline.
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return nil, err
	}
	return r.gen.Embed(ctx, text)
}

// GetModel delegates to the wrapped generator.
func (r *RateLimitedEmbedder) GetModel() string {
	return r.gen.GetModel()
}

var _ EmbeddingGenerator = (*RateLimitedEmbedder)(nil)
