// Package sqlite is a single-file DocumentStore for local runs and the CLI.
// Embeddings are stored as little-endian float32 blobs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/markdave123-py/askflow/internal/core"
	"github.com/markdave123-py/askflow/internal/core/database/sqlite/migrations"
	"github.com/markdave123-py/askflow/internal/models"
)

const metaEmbeddingDim = "embedding_dim"

// Store implements core.DocumentStore on a SQLite file.
type Store struct {
	db   *sql.DB
	path string
	dim  int
	log  *slog.Logger
}

var _ core.DocumentStore = (*Store)(nil)

// NewStore opens (or creates) the database at path for vectors of length dim.
func NewStore(ctx context.Context, path string, dim int, log *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	if log == nil {
		log = slog.Default()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time; SQLite would otherwise answer concurrent commits with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, dim: dim, log: log}

	if err := s.migrate(ctx, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := s.checkDimension(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("sqlite store ready", "path", path, "embedding_dim", dim)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies every NNN_*.up.sql newer than the recorded version.
func (s *Store) migrate(ctx context.Context, fsys fs.FS) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, formatTime(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}
	return nil
}

// checkDimension records the dimension on first use and rejects a different one later.
func (s *Store) checkDimension(ctx context.Context) error {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM askflow_meta WHERE key = ?", metaEmbeddingDim).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.ExecContext(ctx, "INSERT INTO askflow_meta (key, value) VALUES (?, ?)", metaEmbeddingDim, strconv.Itoa(s.dim))
		if err != nil {
			return fmt.Errorf("recording embedding dimension: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading embedding dimension: %w", err)
	}

	stored, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid stored embedding dimension %q: %w", raw, err)
	}
	if stored != s.dim {
		return fmt.Errorf("%w: store has %d, EMBED_DIM is %d", core.ErrDimensionMismatch, stored, s.dim)
	}
	return nil
}

// Transact runs fn in one transaction. A panic in fn rolls back and is re-raised.
func (s *Store) Transact(ctx context.Context, fn func(tx core.DocumentWriter) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
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

	if err = fn(&writer{tx: tx, dim: s.dim}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type writer struct {
	tx  *sql.Tx
	dim int
}

func (w *writer) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	now := time.Now().UTC()
	res, err := w.tx.ExecContext(ctx,
		"INSERT INTO documents (filename, file_path, upload_date) VALUES (?, ?, ?)",
		doc.FileName, doc.FilePath, formatTime(now))
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading document id: %w", err)
	}
	doc.ID = id
	doc.UploadDate = now
	return nil
}

func (w *writer) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	stmt, err := w.tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, text, page_number, bounding_box, embedding)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if ch.Embedding != nil && len(ch.Embedding) != w.dim {
			return fmt.Errorf("chunk %d: %w: got %d, want %d", i, core.ErrDimensionMismatch, len(ch.Embedding), w.dim)
		}

		var bb sql.NullString
		if ch.BoundingBox != nil {
			raw, err := json.Marshal(ch.BoundingBox)
			if err != nil {
				return fmt.Errorf("chunk %d: encoding bounding box: %w", i, err)
			}
			bb = sql.NullString{String: string(raw), Valid: true}
		}

		res, err := stmt.ExecContext(ctx, ch.DocumentID, ch.Text, ch.PageNumber, bb, float32SliceToBytes(ch.Embedding))
		if err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
		if ch.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("chunk %d: reading id: %w", i, err)
		}
	}
	return nil
}

func (s *Store) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, filename, file_path, upload_date FROM documents WHERE id = ?", id)

	doc, err := scanDocument(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrDocumentNotFound
	}
	if err != nil {
		return nil, &core.PersistenceError{Op: "get document", Err: err}
	}
	return doc, nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, filename, file_path, upload_date FROM documents ORDER BY id DESC")
	if err != nil {
		return nil, &core.PersistenceError{Op: "list documents", Err: err}
	}
	defer rows.Close()

	out := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, &core.PersistenceError{Op: "list documents", Err: err}
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: "list documents", Err: err}
	}
	return out, nil
}

func (s *Store) GetChunksByDocument(ctx context.Context, documentID int64) ([]models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, text, page_number, bounding_box, embedding
		FROM chunks WHERE document_id = ? ORDER BY id
	`, documentID)
	if err != nil {
		return nil, &core.PersistenceError{Op: "get chunks", Err: err}
	}
	defer rows.Close()

	out := []models.Chunk{}
	for rows.Next() {
		var (
			ch   models.Chunk
			bb   sql.NullString
			blob []byte
		)
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.Text, &ch.PageNumber, &bb, &blob); err != nil {
			return nil, &core.PersistenceError{Op: "get chunks", Err: err}
		}
		if bb.Valid && bb.String != "" {
			var box models.BoundingBox
			if err := json.Unmarshal([]byte(bb.String), &box); err != nil {
				return nil, &core.PersistenceError{Op: "get chunks", Err: fmt.Errorf("decoding bounding box: %w", err)}
			}
			ch.BoundingBox = &box
		}
		ch.Embedding = bytesToFloat32Slice(blob)
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.PersistenceError{Op: "get chunks", Err: err}
	}
	return out, nil
}

func (s *Store) CountChunks(ctx context.Context, documentID int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE document_id = ?", documentID).Scan(&n); err != nil {
		return 0, &core.PersistenceError{Op: "count chunks", Err: err}
	}
	return n, nil
}

func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
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

func scanDocument(scan func(dest ...any) error) (*models.Document, error) {
	var (
		doc      models.Document
		uploaded string
	)
	if err := scan(&doc.ID, &doc.FileName, &doc.FilePath, &uploaded); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, uploaded)
	if err != nil {
		return nil, fmt.Errorf("parsing upload_date %q: %w", uploaded, err)
	}
	doc.UploadDate = t
	return &doc, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
