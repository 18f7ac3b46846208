package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/askflow/internal/core"
)

var _ core.DocumentExtractor = (*PDFExtractor)(nil)

// PDFExtractor implements core.DocumentExtractor using ledongthuc/pdf.
type PDFExtractor struct {
	log *slog.Logger
}

func NewPDFExtractor(log *slog.Logger) *PDFExtractor {
	if log == nil {
		log = slog.Default()
	}
	return &PDFExtractor{log: log}
}

// ExtractPages parses the document up front and then streams page text from a goroutine in g.
// Pages without text are skipped. A page that fails to decode is logged and skipped;
// only a file-level parse failure is an error.
func (e *PDFExtractor) ExtractPages(ctx context.Context, g *errgroup.Group, data []byte) (<-chan core.PageText, error) {
	reader, total, err := openPDF(data)
	if err != nil {
		return nil, &core.ExtractionError{Err: err}
	}

	out := make(chan core.PageText, 8)

	g.Go(func() error {
		defer close(out)

		for n := 1; n <= total; n++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			text, err := pageText(reader, n)
			if err != nil {
				e.log.Warn("pdf: skipping unreadable page", "page", n, "pages", total, "error", err)
				continue
			}
			if strings.TrimSpace(text) == "" {
				continue
			}

			select {
			case out <- core.PageText{PageNumber: n, Text: text}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return out, nil
}

// openPDF parses the trailer and the page tree. The decoder reports damage in either by
// panicking, so both run under one recover.
func openPDF(data []byte) (r *pdf.Reader, pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, pages, err = nil, 0, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("empty file")
	}
	r, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, err
	}
	return r, r.NumPage(), nil
}

func pageText(r *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("decode page: %v", rec)
		}
	}()
	p := r.Page(n)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}
