package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/markdave123-py/askflow/internal/config"
	"github.com/markdave123-py/askflow/internal/core"
	db "github.com/markdave123-py/askflow/internal/core/database"
	"github.com/markdave123-py/askflow/internal/core/database/sqlite"
	"github.com/markdave123-py/askflow/internal/core/ingestion_engine"
	"github.com/markdave123-py/askflow/internal/core/llm"
	objectclient "github.com/markdave123-py/askflow/internal/core/object-client"
	"github.com/markdave123-py/askflow/internal/services"
)

type App struct {
	Store        core.DocumentStore
	ObjectClient core.ObjectClient
	Embedder     core.EmbeddingProvider
	Ingestor     *ingestion_engine.DocumentIngestor
	Documents    *services.DocumentService
	Server       *Server
}

// NewApp builds every dependency from cfg. On error anything already opened is closed.
func NewApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (_ *App, err error) {
	if log == nil {
		log = slog.Default()
	}

	appCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	a := &App{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.Store, err = newStore(appCtx, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info("document store ready", "backend", cfg.StoreBackend)

	a.ObjectClient, err = objectclient.NewObjectClient(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init file storage: %w", err)
	}
	log.Info("file storage ready", "backend", cfg.FileBackend)

	a.Embedder, err = llm.NewEmbeddingProvider(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	log.Info("embedding provider ready", "provider", a.Embedder.Name(), "dimension", a.Embedder.Dimension())

	counter, err := ingestion_engine.NewTiktokenCounter(cfg.Ingest.TokenEncoding)
	if err != nil {
		return nil, fmt.Errorf("init token counter: %w", err)
	}
	chunker, err := ingestion_engine.NewChunker(counter, cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	ingCfg := &ingestion_engine.IngestConfig{
		EmbedConcurrency: cfg.Ingest.EmbedConcurrency,
		EmbedBatchSize:   cfg.Ingest.EmbedBatchSize,
		EmbedTimeout:     cfg.Ingest.EmbedTimeout,
		IngestTimeout:    cfg.Ingest.IngestTimeout,
	}

	a.Ingestor = ingestion_engine.NewDocumentIngestor(
		a.Store, a.ObjectClient, a.Embedder, ingestion_engine.NewPDFExtractor(log), chunker, ingCfg, log)
	a.Documents = services.NewDocumentService(a.Store, a.ObjectClient, log)
	a.Server = NewServer(cfg, a.Ingestor, a.Documents, log)

	return a, nil
}

func newStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (core.DocumentStore, error) {
	switch cfg.StoreBackend {
	case config.StoreBackendSQLite:
		s, err := sqlite.NewStore(ctx, cfg.SQLitePath, cfg.EmbedDim, log)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return s, nil
	case config.StoreBackendPostgres:
		c, err := db.NewDatabaseClient(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Close releases the store and, when it holds one, the embedder's client.
func (a *App) Close() error {
	var errs []error
	if c, ok := a.Embedder.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
