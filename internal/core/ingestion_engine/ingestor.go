package ingestion_engine

import "context"

var _ Ingestor = (*DocumentIngestor)(nil)

// Ingestor is what the HTTP and CLI layers depend on.
type Ingestor interface {
	Ingest(ctx context.Context, data []byte, filename string) (*IngestResult, error)
	IngestFile(ctx context.Context, path string) (*IngestResult, error)
}
