package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/askflow/internal/core"
	"github.com/markdave123-py/askflow/internal/models"
)

// NewDocumentIngestor wires the pipeline stages. A nil cfg uses DefaultIngestConfig.
func NewDocumentIngestor(
	store core.DocumentStore,
	obj core.ObjectClient,
	emb core.EmbeddingProvider,
	extractor core.DocumentExtractor,
	chunker *Chunker,
	cfg *IngestConfig,
	log *slog.Logger,
) *DocumentIngestor {
	if cfg == nil {
		cfg = DefaultIngestConfig()
	}
	if log == nil {
		log = slog.Default()
	}
	return &DocumentIngestor{
		store:     store,
		obj:       obj,
		embedder:  emb,
		extractor: extractor,
		chunker:   chunker,
		cfg:       cfg,
		log:       log.With("component", "ingestor"),
	}
}

// Ingest validates, stores, extracts, chunks, embeds and persists one uploaded PDF.
//
// The document and its chunks are written in a single transaction that is opened only
// after every chunk has an embedding. On any failure nothing is written to the store
// and the saved upload is removed.
func (i *DocumentIngestor) Ingest(ctx context.Context, data []byte, filename string) (*IngestResult, error) {
	if err := ValidatePDF(filename, data); err != nil {
		return nil, err
	}

	if i.cfg.IngestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.cfg.IngestTimeout)
		defer cancel()
	}

	started := time.Now()
	key := uuid.NewString() + strings.ToLower(filepath.Ext(filename))

	ref, err := i.obj.Save(ctx, key, data, pdfContentType)
	if err != nil {
		return nil, &core.PersistenceError{Op: "save upload", Err: err}
	}
	log := i.log.With("filename", filename, "file_path", ref)

	res, err := i.process(ctx, log, filename, ref, data)
	if err != nil {
		if delErr := i.obj.Delete(context.WithoutCancel(ctx), ref); delErr != nil {
			log.Warn("remove stored upload", "error", delErr)
		}
		log.Error("ingestion failed", "error", err, "elapsed", time.Since(started))
		return nil, err
	}

	log.Info("document ingested",
		"document_id", res.Document.ID,
		"chunks", res.ChunksProcessed,
		"elapsed", time.Since(started),
	)
	return res, nil
}

// IngestFile reads a PDF from disk and ingests it under its base name.
func (i *DocumentIngestor) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return i.Ingest(ctx, data, filepath.Base(path))
}

func (i *DocumentIngestor) process(ctx context.Context, log *slog.Logger, filename, ref string, data []byte) (*IngestResult, error) {
	chunks, err := i.extractAndChunk(ctx, data)
	if err != nil {
		return nil, err
	}
	log.Debug("chunked document", "chunks", len(chunks))

	vecs, err := i.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}
	log.Debug("embedded chunks", "provider", i.embedder.Name(), "chunks", len(vecs))

	doc := &models.Document{FileName: filename, FilePath: ref}
	if err := i.persist(ctx, doc, chunks, vecs); err != nil {
		return nil, err
	}

	return &IngestResult{Document: *doc, ChunksProcessed: len(chunks)}, nil
}

// extractAndChunk runs page extraction and chunking as one errgroup pipeline and
// collects the chunks in document order.
func (i *DocumentIngestor) extractAndChunk(ctx context.Context, data []byte) ([]pageChunk, error) {
	g, gctx := errgroup.WithContext(ctx)

	// pdf bytes -> pages (receive-only channel).
	pages, err := i.extractor.ExtractPages(gctx, g, data)
	if err != nil {
		if !core.IsExtraction(err) {
			err = &core.ExtractionError{Err: err}
		}
		return nil, err
	}

	// pages -> chunks.
	chunkCh := i.streamChunk(gctx, g, pages)

	var chunks []pageChunk
	g.Go(func() error {
		for c := range chunkCh {
			chunks = append(chunks, c)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("extract pages: %w", err)
		}
		if !core.IsExtraction(err) {
			err = &core.ExtractionError{Err: err}
		}
		return nil, err
	}
	return chunks, nil
}
