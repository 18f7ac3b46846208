package llm

import (
	"context"
	"fmt"

	"github.com/markdave123-py/askflow/internal/config"
	"github.com/markdave123-py/askflow/internal/core"
)

// NewEmbeddingProvider builds the provider selected by cfg.Provider, rate limited when EMBED_RPS is set.
func NewEmbeddingProvider(ctx context.Context, cfg *config.Config) (core.EmbeddingProvider, error) {
	var (
		p   core.EmbeddingProvider
		err error
	)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		p, err = NewOpenAIEmbedder(cfg.OpenAIAPIKey,
			WithEmbeddingModel(cfg.OpenAIModel),
			WithEmbeddingDimension(cfg.EmbedDim),
			WithMaxRetries(cfg.EmbedMaxRetries),
			WithRequestTimeout(cfg.Ingest.EmbedTimeout),
		)
	case config.ProviderAzure:
		p, err = NewAzureEmbedder(cfg.AzureEndpoint, cfg.AzureAPIKey, cfg.AzureAPIVersion, cfg.AzureDeployment,
			WithEmbeddingDimension(cfg.EmbedDim),
			WithMaxRetries(cfg.EmbedMaxRetries),
			WithRequestTimeout(cfg.Ingest.EmbedTimeout),
		)
	case config.ProviderGemini:
		p, err = NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EmbedDim)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WithRateLimit(p, cfg.EmbedRPS, cfg.EmbedBurst), nil
}
