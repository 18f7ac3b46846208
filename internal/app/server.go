package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/askflow/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/askflow/internal/api/middlewares"
	"github.com/markdave123-py/askflow/internal/config"
	"github.com/markdave123-py/askflow/internal/core/ingestion_engine"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, ing ingestion_engine.Ingestor, docs handlers.DocumentReader, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	docHandler := handlers.NewDocumentHandler(ing, docs, int64(cfg.MaxUploadMB)<<20, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.RequestLogger(log))
	r.Use(middleware.Recoverer)

	// Ingestion is synchronous; give the request as long as the pipeline itself.
	timeout := 60 * time.Second
	if cfg.Ingest.IngestTimeout > timeout {
		timeout = cfg.Ingest.IngestTimeout
	}
	r.Use(middleware.Timeout(timeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/health", handlers.Health)

	r.Route(cfg.APIV1Prefix, func(api chi.Router) {
		api.Route("/documents", func(d chi.Router) {
			d.Post("/upload", docHandler.UploadDocument)
			d.Get("/", docHandler.GetDocuments)
			d.Get("/{id}", docHandler.GetDocument)
			d.Delete("/{id}", docHandler.DeleteDocument)
		})
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{httpServer: httpSrv, log: log}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
