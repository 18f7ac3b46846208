package ingestion_engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/askflow/internal/core"
	"github.com/markdave123-py/askflow/internal/models"
)

// embedAll embeds every chunk and returns the vectors indexed like chunks.
//
// Batches of EmbedBatchSize run on at most EmbedConcurrency goroutines. Each batch
// writes only its own slice of the result, so completion order does not matter.
// The first failure cancels the remaining calls.
func (i *DocumentIngestor) embedAll(ctx context.Context, chunks []pageChunk) ([][]float32, error) {
	vecs := make([][]float32, len(chunks))
	if len(chunks) == 0 {
		return vecs, nil
	}

	batchSize := max(1, i.cfg.EmbedBatchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, i.cfg.EmbedConcurrency))

	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		g.Go(func() error {
			return i.embedBatch(gctx, chunks[start:end], vecs[start:end])
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vecs, nil
}

// embedBatch embeds items with one provider call and stores the vectors in dst.
func (i *DocumentIngestor) embedBatch(ctx context.Context, items []pageChunk, dst [][]float32) error {
	first := items[0].Index
	if err := ctx.Err(); err != nil {
		return i.embedErr(first, err)
	}

	callCtx := ctx
	if i.cfg.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, i.cfg.EmbedTimeout)
		defer cancel()
	}

	var (
		got [][]float32
		err error
	)
	if len(items) == 1 {
		var vec []float32
		vec, err = i.embedder.Embed(callCtx, items[0].Text)
		got = [][]float32{vec}
	} else {
		texts := make([]string, len(items))
		for k := range items {
			texts[k] = items[k].Text
		}
		got, err = i.embedder.EmbedTexts(callCtx, texts)
	}
	if err != nil {
		return i.embedErr(first, err)
	}
	if len(got) != len(items) {
		return i.embedErr(first, fmt.Errorf("embed size mismatch: got %d want %d", len(got), len(items)))
	}

	dim := i.embedder.Dimension()
	for k := range items {
		if dim > 0 && len(got[k]) != dim {
			return i.embedErr(items[k].Index, fmt.Errorf("vector length %d does not match provider dimension %d", len(got[k]), dim))
		}
		dst[k] = got[k]
	}
	return nil
}

// embedErr attaches the chunk index to err, keeping an existing EmbeddingError's provider.
func (i *DocumentIngestor) embedErr(index int, err error) error {
	var embErr *core.EmbeddingError
	if errors.As(err, &embErr) {
		tagged := *embErr
		tagged.ChunkIndex = index
		return &tagged
	}
	return &core.EmbeddingError{Provider: i.embedder.Name(), ChunkIndex: index, Err: err}
}

// persist writes the document row and every chunk row in one transaction.
// Nothing is visible to readers unless all inserts succeed.
func (i *DocumentIngestor) persist(ctx context.Context, doc *models.Document, chunks []pageChunk, vecs [][]float32) error {
	rows := make([]models.Chunk, len(chunks))
	for k := range chunks {
		rows[k] = models.Chunk{
			Text:       chunks[k].Text,
			PageNumber: chunks[k].PageNumber,
			Embedding:  vecs[k],
		}
	}

	err := i.store.Transact(ctx, func(tx core.DocumentWriter) error {
		if err := tx.CreateDocument(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		for k := range rows {
			rows[k].DocumentID = doc.ID
		}
		if err := tx.InsertChunks(ctx, rows); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
		return nil
	})
	if err != nil {
		return &core.PersistenceError{Op: "persist document", Err: err}
	}

	doc.Chunks = rows
	return nil
}
