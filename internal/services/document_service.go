package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/markdave123-py/askflow/internal/core"
	"github.com/markdave123-py/askflow/internal/models"
)

// DocumentService serves read and delete operations on ingested documents.
// Uploads go through the ingestion engine.
type DocumentService struct {
	store   core.DocumentStore
	storage core.ObjectClient
	log     *slog.Logger
}

// DocumentDetail is a document with its chunk count. Get also fills Chunks (vectors stripped);
// List leaves them out.
type DocumentDetail struct {
	models.Document
	ChunkCount int `json:"chunk_count"`
}

func NewDocumentService(store core.DocumentStore, storage core.ObjectClient, log *slog.Logger) *DocumentService {
	if log == nil {
		log = slog.Default()
	}
	return &DocumentService{store: store, storage: storage, log: log.With("component", "documents")}
}

func (s *DocumentService) Get(ctx context.Context, id int64) (*DocumentDetail, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	chunks, err := s.store.GetChunksByDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	for k := range chunks {
		chunks[k].Embedding = nil
	}
	doc.Chunks = chunks
	return &DocumentDetail{Document: *doc, ChunkCount: len(chunks)}, nil
}

// List returns every document, newest first, with its chunk count.
func (s *DocumentService) List(ctx context.Context) ([]DocumentDetail, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]DocumentDetail, 0, len(docs))
	for _, doc := range docs {
		n, err := s.store.CountChunks(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, DocumentDetail{Document: doc, ChunkCount: n})
	}
	return out, nil
}

// Delete removes the document and its chunks, then the stored upload.
// A failure to remove the file is logged, not returned.
func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}

	if s.storage != nil && doc.FilePath != "" {
		if err := s.storage.Delete(ctx, doc.FilePath); err != nil {
			s.log.Warn("stored upload not removed", "document_id", id, "file_path", doc.FilePath, "error", err)
		}
	}
	s.log.Info("document deleted", "document_id", id)
	return nil
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, core.ErrDocumentNotFound)
}
