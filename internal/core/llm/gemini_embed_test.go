package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/markdave123-py/askflow/internal/core"
)

func TestNewGeminiEmbedder_RequiresKey(t *testing.T) {
	_, err := NewGeminiEmbedder(context.Background(), "", "", 768)
	assert.Error(t, err)
}

func TestGeminiEmbedder_EmptyInput(t *testing.T) {
	g := &GeminiEmbedder{modelName: DefaultGeminiModel, dimension: 768}

	_, err := g.EmbedTexts(context.Background(), nil)
	assert.True(t, core.IsEmbedding(err))

	// Blank texts fail before the nil client is touched.
	_, err = g.EmbedTexts(context.Background(), []string{"fine", "\r\n "})
	assert.True(t, core.IsEmbedding(err))
	assert.ErrorIs(t, err, errNoInput)

	_, err = g.Embed(context.Background(), "")
	assert.ErrorIs(t, err, errNoInput)
	assert.Equal(t, 768, g.Dimension())
	assert.Equal(t, ProviderNameGemini, g.Name())
	assert.NoError(t, g.Close())
}
