package core

import (
	"context"
	"errors"

	"github.com/markdave123-py/askflow/internal/models"
)

var (
	// ErrDocumentNotFound is returned by lookups for an id that does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDimensionMismatch means the store was created for a different embedding size.
	ErrDimensionMismatch = errors.New("embedding dimension does not match store")
)

// DocumentStore defines all persistence operations the services need.
// It abstracts Postgres/pgvector and SQLite so higher layers never depend on a specific DB.
type DocumentStore interface {
	// Transact runs fn inside one transaction. The transaction commits only if fn returns nil
	// and is rolled back on error, panic or context cancellation.
	Transact(ctx context.Context, fn func(tx DocumentWriter) error) error

	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	GetChunksByDocument(ctx context.Context, documentID int64) ([]models.Chunk, error)
	CountChunks(ctx context.Context, documentID int64) (int, error)
	DeleteDocument(ctx context.Context, id int64) error

	Close() error
}

// DocumentWriter is the write side available inside a transaction.
type DocumentWriter interface {
	// CreateDocument inserts doc and fills in ID and UploadDate.
	CreateDocument(ctx context.Context, doc *models.Document) error
	// InsertChunks inserts chunks in slice order and fills in their IDs.
	InsertChunks(ctx context.Context, chunks []models.Chunk) error
}

// ObjectClient stores raw uploads. Save returns a stable reference that Delete accepts.
// It's abstract so local disk, S3, MinIO, etc. can be swapped easily.
type ObjectClient interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (ref string, err error)
	Delete(ctx context.Context, ref string) error
}
