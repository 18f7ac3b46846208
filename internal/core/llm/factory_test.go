package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/askflow/internal/config"
)

func TestNewEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantName string
		limited  bool
		wantErr  bool
	}{
		{
			name:     "openai",
			cfg:      config.Config{Provider: config.ProviderOpenAI, OpenAIAPIKey: "k", OpenAIModel: DefaultOpenAIModel, EmbedDim: 1536},
			wantName: ProviderNameOpenAI,
		},
		{
			name: "azure",
			cfg: config.Config{Provider: config.ProviderAzure, AzureAPIKey: "k", AzureEndpoint: "https://x.openai.azure.com",
				AzureDeployment: "embed", EmbedDim: 1536},
			wantName: ProviderNameAzureOpenAI,
		},
		{
			name:     "rate limited",
			cfg:      config.Config{Provider: config.ProviderOpenAI, OpenAIAPIKey: "k", EmbedDim: 1536, EmbedRPS: 5, EmbedBurst: 2},
			wantName: ProviderNameOpenAI,
			limited:  true,
		},
		{name: "missing key", cfg: config.Config{Provider: config.ProviderOpenAI}, wantErr: true},
		{name: "unknown", cfg: config.Config{Provider: "cohere"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewEmbeddingProvider(context.Background(), &tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
			assert.Equal(t, 1536, p.Dimension())

			_, isLimited := p.(*RateLimitedEmbedder)
			assert.Equal(t, tt.limited, isLimited)
		})
	}
}
