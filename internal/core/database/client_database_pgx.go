package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/askflow/internal/config"
	"github.com/markdave123-py/askflow/internal/core"
	"github.com/markdave123-py/askflow/internal/models"
)

// DatabaseClient is the Postgres + pgvector DocumentStore.
type DatabaseClient struct {
	db  *sql.DB
	dim int
	log *slog.Logger
}

var _ core.DocumentStore = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config, log *slog.Logger) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	if cfg.EmbedDim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.EmbedDim)
	}
	if log == nil {
		log = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, cfg.EmbedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	log.Info("postgres store ready", "embedding_dim", cfg.EmbedDim)
	return &DatabaseClient{db: db, dim: cfg.EmbedDim, log: log}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Transact runs fn in one transaction. A panic in fn rolls back and is re-raised.
func (c *DatabaseClient) Transact(ctx context.Context, fn func(tx core.DocumentWriter) error) (err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("tx rollback failed: %v (original err: %w)", rbErr, err)
			}
		}
	}()

	if err = fn(&pgWriter{q: tx, dim: c.dim}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// pgWriter implements core.DocumentWriter on a transaction.
type pgWriter struct {
	q   querier
	dim int
}

func (w *pgWriter) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents (filename, file_path, upload_date)
		VALUES ($1, $2, now())
		RETURNING id, upload_date
	`
	if err := w.q.QueryRowContext(ctx, q, doc.FileName, doc.FilePath).Scan(&doc.ID, &doc.UploadDate); err != nil {
		return err
	}
	doc.UploadDate = doc.UploadDate.UTC()
	return nil
}

// InsertChunks inserts through one prepared statement, in slice order.
func (w *pgWriter) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	const q = `
		INSERT INTO chunks (document_id, text, page_number, bounding_box, embedding)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	stmt, err := w.q.PrepareContext(ctx, q)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if ch.Embedding != nil && len(ch.Embedding) != w.dim {
			return fmt.Errorf("chunk %d: %w: got %d, want %d", i, core.ErrDimensionMismatch, len(ch.Embedding), w.dim)
		}
		bb, err := encodeBoundingBox(ch.BoundingBox)
		if err != nil {
			return err
		}

		var vec any
		if ch.Embedding != nil {
			vec = pgvector.NewVector(ch.Embedding)
		}

		if err := stmt.QueryRowContext(ctx, ch.DocumentID, ch.Text, ch.PageNumber, bb, vec).Scan(&ch.ID); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	return nil
}

func (c *DatabaseClient) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	const q = `
		SELECT id, filename, file_path, upload_date
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(&d.ID, &d.FileName, &d.FilePath, &d.UploadDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrDocumentNotFound
	}
	if err != nil {
		return nil, &core.PersistenceError{Op: "get document", Err: err}
	}
	d.UploadDate = d.UploadDate.UTC()
	return &d, nil
}

func (c *DatabaseClient) ListDocuments(ctx context.Context) ([]models.Document, error) {
	const q = `
		SELECT id, filename, file_path, upload_date
		FROM documents
		ORDER BY upload_date DESC, id DESC
	`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, &core.PersistenceError{Op: "list documents", Err: err}
	}
	defer rows.Close()

	out := []models.Document{}
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.FileName, &d.FilePath, &d.UploadDate); err != nil {
			return nil, &core.PersistenceError{Op: "list documents", Err: err}
		}
		d.UploadDate = d.UploadDate.UTC()
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: "list documents", Err: err}
	}
	return out, nil
}

// GetChunksByDocument returns chunks in insertion order, vectors included.
func (c *DatabaseClient) GetChunksByDocument(ctx context.Context, documentID int64) ([]models.Chunk, error) {
	const q = `
		SELECT id, document_id, text, page_number, bounding_box, embedding
		FROM chunks
		WHERE document_id = $1
		ORDER BY id
	`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, &core.PersistenceError{Op: "get chunks", Err: err}
	}
	defer rows.Close()

	out := []models.Chunk{}
	for rows.Next() {
		var (
			ch  models.Chunk
			bb  sql.NullString
			vec *pgvector.Vector
		)
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Text, &ch.PageNumber, &bb, &vec); err != nil {
			return nil, &core.PersistenceError{Op: "get chunks", Err: err}
		}
		if ch.BoundingBox, err = decodeBoundingBox(bb); err != nil {
			return nil, &core.PersistenceError{Op: "get chunks", Err: err}
		}
		if vec != nil {
			ch.Embedding = vec.Slice()
		}
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: "get chunks", Err: err}
	}
	return out, nil
}

func (c *DatabaseClient) CountChunks(ctx context.Context, documentID int64) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&n); err != nil {
		return 0, &core.PersistenceError{Op: "count chunks", Err: err}
	}
	return n, nil
}

// DeleteDocument removes the document; its chunks go with it through ON DELETE CASCADE.
func (c *DatabaseClient) DeleteDocument(ctx context.Context, id int64) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return &core.PersistenceError{Op: "delete document", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &core.PersistenceError{Op: "delete document", Err: err}
	}
	if n == 0 {
		return core.ErrDocumentNotFound
	}
	return nil
}
