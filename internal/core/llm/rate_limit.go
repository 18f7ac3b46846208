package llm

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/markdave123-py/askflow/internal/core"
)

// RateLimitedEmbedder spaces out provider calls with a token bucket.
// Each Embed or EmbedTexts call takes one token regardless of batch size.
type RateLimitedEmbedder struct {
	core.EmbeddingProvider
	limiter *rate.Limiter
}

// WithRateLimit wraps p so it makes at most rps calls per second with the given burst.
// A non-positive rps returns p unchanged.
func WithRateLimit(p core.EmbeddingProvider, rps float64, burst int) core.EmbeddingProvider {
	if rps <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedEmbedder{
		EmbeddingProvider: p,
		limiter:           rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimitedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.EmbeddingProvider.Embed(ctx, text)
}

func (r *RateLimitedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.EmbeddingProvider.EmbedTexts(ctx, texts)
}

func (r *RateLimitedEmbedder) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return &core.EmbeddingError{Provider: r.Name(), ChunkIndex: -1, Err: err}
	}
	return nil
}

// Close releases the wrapped provider's client, if it has one.
func (r *RateLimitedEmbedder) Close() error {
	if c, ok := r.EmbeddingProvider.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
