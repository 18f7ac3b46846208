package core

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// PageText is the text of one PDF page. PageNumber starts at 1.
type PageText struct {
	PageNumber int
	Text       string
}

// DocumentExtractor defines how page text is pulled out of a document.
type DocumentExtractor interface {
	// ExtractPages validates data and streams every page that carries text, in page order.
	// Structural failures are returned immediately; the stream runs inside g and is closed when done.
	ExtractPages(ctx context.Context, g *errgroup.Group, data []byte) (<-chan PageText, error)
}
