package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/askflow/internal/core"
)

const (
	DefaultGeminiModel = "text-embedding-004"
	ProviderNameGemini = "gemini"
)

// GeminiEmbedder embeds with a Gemini embedding model.
// Gemini picks the vector length from the model, so dimension must match it.
type GeminiEmbedder struct {
	client    *genai.Client
	modelName string
	dimension int
}

func NewGeminiEmbedder(ctx context.Context, apiKey, modelName string, dimension int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiEmbedder{client: cl, modelName: modelName, dimension: dimension}, nil
}

func (g *GeminiEmbedder) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := g.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts batches all texts in one request via EmbeddingBatch.
func (g *GeminiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, g.fail(errNoInput)
	}

	inputs, err := normalizeInputs(texts)
	if err != nil {
		return nil, g.fail(err)
	}

	em := g.client.EmbeddingModel(g.modelName)
	em.TaskType = genai.TaskTypeRetrievalDocument

	batch := em.NewBatch()
	for _, t := range inputs {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, g.fail(err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, g.fail(fmt.Errorf("got %d embeddings for %d inputs", len(resp.Embeddings), len(texts)))
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		out = append(out, e.Values)
	}
	return out, nil
}

func (g *GeminiEmbedder) fail(err error) error {
	return &core.EmbeddingError{Provider: ProviderNameGemini, ChunkIndex: -1, Err: err}
}

func (g *GeminiEmbedder) Dimension() int { return g.dimension }
func (g *GeminiEmbedder) Name() string   { return ProviderNameGemini }

var _ core.EmbeddingProvider = (*GeminiEmbedder)(nil)
