package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name        string
		err         error
		unsupported bool
		extraction  bool
		embedding   bool
		persistence bool
	}{
		{name: "unsupported", err: &UnsupportedFormatError{FileName: "a.txt", Reason: "extension"}, unsupported: true},
		{name: "extraction", err: &ExtractionError{Err: base}, extraction: true},
		{name: "embedding wrapped", err: fmt.Errorf("ingest: %w", &EmbeddingError{Provider: "openai", ChunkIndex: 1, Err: base}), embedding: true},
		{name: "persistence", err: &PersistenceError{Op: "commit", Err: base}, persistence: true},
		{name: "plain", err: base},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unsupported, IsUnsupportedFormat(tt.err))
			assert.Equal(t, tt.extraction, IsExtraction(tt.err))
			assert.Equal(t, tt.embedding, IsEmbedding(tt.err))
			assert.Equal(t, tt.persistence, IsPersistence(tt.err))
		})
	}
}

func TestEmbeddingErrorUnwrapsCause(t *testing.T) {
	err := &EmbeddingError{Provider: "azure", ChunkIndex: -1, Err: context.DeadlineExceeded}

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "embed with azure: context deadline exceeded", err.Error())
}
