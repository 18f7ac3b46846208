package ingestion_engine

import (
	"log/slog"
	"time"

	"github.com/markdave123-py/askflow/internal/core"
	"github.com/markdave123-py/askflow/internal/models"
)

// IngestConfig tunes the pipeline.
//
// EmbedConcurrency: how many embedding calls run at once for one document.
// EmbedBatchSize:   how many chunk texts go into one provider call (1 = one call per chunk).
// EmbedTimeout:     deadline for a single provider call.
// IngestTimeout:    deadline for the whole upload, storage write included.
type IngestConfig struct {
	EmbedConcurrency int
	EmbedBatchSize   int
	EmbedTimeout     time.Duration
	IngestTimeout    time.Duration
}

// DefaultIngestConfig mirrors the environment defaults.
func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		EmbedConcurrency: 4,
		EmbedBatchSize:   1,
		EmbedTimeout:     30 * time.Second,
		IngestTimeout:    5 * time.Minute,
	}
}

// pageChunk is the internal representation passed through the pipeline.
//
// Index:      stable, zero-based position of the chunk inside the document.
// PageNumber: 1-based source page.
// Text:       chunk content.
type pageChunk struct {
	Index      int
	PageNumber int
	Text       string
}

// DocumentIngestor orchestrates extraction, chunking, embedding and the final store write.
//
// store:     persistence for document and chunks.
// obj:       storage for the raw upload.
// embedder:  embedding provider chosen at startup.
// extractor: PDF page text source.
// chunker:   per-page splitter.
type DocumentIngestor struct {
	store     core.DocumentStore
	obj       core.ObjectClient
	embedder  core.EmbeddingProvider
	extractor core.DocumentExtractor
	chunker   *Chunker
	cfg       *IngestConfig
	log       *slog.Logger
}

// IngestResult is what a successful upload reports back.
type IngestResult struct {
	Document        models.Document
	ChunksProcessed int
}
