package ingestion_engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/askflow/internal/core"
	"github.com/markdave123-py/askflow/internal/models"
)

// memStore is an in-memory DocumentStore. Writes are staged and applied only when fn succeeds.
type memStore struct {
	mu        sync.Mutex
	docs      map[int64]models.Document
	chunks    map[int64][]models.Chunk
	nextDoc   int64
	nextChunk int64

	failInsert error
}

func newMemStore() *memStore {
	return &memStore{docs: map[int64]models.Document{}, chunks: map[int64][]models.Chunk{}}
}

type memTx struct {
	s      *memStore
	doc    *models.Document
	chunks []models.Chunk
}

func (tx *memTx) CreateDocument(_ context.Context, doc *models.Document) error {
	tx.s.nextDoc++
	doc.ID = tx.s.nextDoc
	doc.UploadDate = time.Now().UTC()
	tx.doc = doc
	return nil
}

func (tx *memTx) InsertChunks(_ context.Context, chunks []models.Chunk) error {
	if tx.s.failInsert != nil {
		return tx.s.failInsert
	}
	for k := range chunks {
		tx.s.nextChunk++
		chunks[k].ID = tx.s.nextChunk
	}
	tx.chunks = append(tx.chunks, chunks...)
	return nil
}

func (s *memStore) Transact(ctx context.Context, fn func(tx core.DocumentWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docSeq, chunkSeq := s.nextDoc, s.nextChunk
	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		s.nextDoc, s.nextChunk = docSeq, chunkSeq
		return err
	}
	if err := ctx.Err(); err != nil {
		s.nextDoc, s.nextChunk = docSeq, chunkSeq
		return err
	}
	if tx.doc != nil {
		s.docs[tx.doc.ID] = *tx.doc
		s.chunks[tx.doc.ID] = append([]models.Chunk(nil), tx.chunks...)
	}
	return nil
}

func (s *memStore) GetDocument(_ context.Context, id int64) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, core.ErrDocumentNotFound
	}
	return &d, nil
}

func (s *memStore) ListDocuments(context.Context) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (s *memStore) GetChunksByDocument(_ context.Context, id int64) ([]models.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Chunk(nil), s.chunks[id]...), nil
}

func (s *memStore) CountChunks(_ context.Context, id int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks[id]), nil
}

func (s *memStore) DeleteDocument(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return core.ErrDocumentNotFound
	}
	delete(s.docs, id)
	delete(s.chunks, id)
	return nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) totalChunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.chunks {
		n += len(c)
	}
	return n
}

// memObjects records saved uploads.
type memObjects struct {
	mu      sync.Mutex
	files   map[string][]byte
	saves   int
	deletes int
	failErr error
}

func newMemObjects() *memObjects { return &memObjects{files: map[string][]byte{}} }

func (o *memObjects) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failErr != nil {
		return "", o.failErr
	}
	o.saves++
	ref := "uploads/" + key
	o.files[ref] = data
	return ref, nil
}

func (o *memObjects) Delete(_ context.Context, ref string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.deletes++
	delete(o.files, ref)
	return nil
}

func (o *memObjects) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.files)
}

// staticExtractor streams fixed pages.
type staticExtractor struct {
	pages []core.PageText
	err   error
}

func (e staticExtractor) ExtractPages(ctx context.Context, g *errgroup.Group, _ []byte) (<-chan core.PageText, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make(chan core.PageText)
	g.Go(func() error {
		defer close(out)
		for _, p := range e.pages {
			select {
			case out <- p:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	return out, nil
}

// funcEmbedder derives a vector from the text so callers can check the pairing.
type funcEmbedder struct {
	dim   int
	delay func(text string) time.Duration
	fail  func(text string) error

	mu         sync.Mutex
	batchCalls int
}

func (e *funcEmbedder) vector(ctx context.Context, text string) ([]float32, error) {
	if e.delay != nil {
		select {
		case <-time.After(e.delay(text)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.fail != nil {
		if err := e.fail(text); err != nil {
			return nil, err
		}
	}
	v := make([]float32, e.dim)
	for k := range v {
		v[k] = float32(len(text) + k)
	}
	return v, nil
}

func (e *funcEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.vector(ctx, text)
}

func (e *funcEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batchCalls++
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for k, t := range texts {
		v, err := e.vector(ctx, t)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func (e *funcEmbedder) Dimension() int { return e.dim }
func (e *funcEmbedder) Name() string   { return "fake" }

// shortVectorEmbedder ignores its advertised dimension.
type shortVectorEmbedder struct{ funcEmbedder }

func (e *shortVectorEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1}, nil
}

var errProvider = errors.New("provider unavailable")
