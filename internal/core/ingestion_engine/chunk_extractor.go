package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/askflow/internal/core"
)

// ErrInvalidChunkConfig is returned for a non-positive size or an overlap that is not smaller than the size.
var ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

// defaultSeparators go from the largest semantic unit to the smallest.
// The empty separator cuts between runes and always matches.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunker splits page text into overlapping chunks bounded by a token budget.
//
// Split tries paragraph breaks first and falls back to lines, sentences, words and
// finally single runes for any piece still over budget. Small pieces are merged
// greedily; each new chunk starts with up to overlap tokens from the previous one.
type Chunker struct {
	counter    TokenCounter
	size       int
	overlap    int
	separators []string
}

func NewChunker(counter TokenCounter, size, overlap int) (*Chunker, error) {
	if counter == nil {
		return nil, fmt.Errorf("%w: nil token counter", ErrInvalidChunkConfig)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidChunkConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", ErrInvalidChunkConfig, overlap, size)
	}
	return &Chunker{
		counter:    counter,
		size:       size,
		overlap:    overlap,
		separators: defaultSeparators,
	}, nil
}

// Split returns the chunks of text in reading order. Whitespace-only input yields none.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return c.split(text, c.separators)
}

func (c *Chunker) split(text string, separators []string) []string {
	var out []string

	sep := separators[len(separators)-1]
	var finer []string
	for i, s := range separators {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep = s
			finer = separators[i+1:]
			break
		}
	}

	var fitting []string
	for _, piece := range splitAfter(text, sep) {
		if c.counter.CountTokens(piece) < c.size {
			fitting = append(fitting, piece)
			continue
		}
		if len(fitting) > 0 {
			out = append(out, c.merge(fitting)...)
			fitting = nil
		}
		if len(finer) == 0 {
			if t := strings.TrimSpace(piece); t != "" {
				out = append(out, t)
			}
			continue
		}
		out = append(out, c.split(piece, finer)...)
	}
	if len(fitting) > 0 {
		out = append(out, c.merge(fitting)...)
	}
	return out
}

// merge packs pieces into chunks of at most size tokens, carrying an overlap tail forward.
func (c *Chunker) merge(pieces []string) []string {
	var (
		chunks  []string
		current []string
		lengths []int
		total   int
	)

	for _, p := range pieces {
		n := c.counter.CountTokens(p)
		if total+n > c.size && len(current) > 0 {
			if text := joinPieces(current); text != "" {
				chunks = append(chunks, text)
			}
			// Drop from the front until only the overlap tail is left and p fits.
			for total > c.overlap || (total+n > c.size && total > 0) {
				total -= lengths[0]
				current = current[1:]
				lengths = lengths[1:]
			}
		}
		current = append(current, p)
		lengths = append(lengths, n)
		total += n
	}

	if text := joinPieces(current); text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func joinPieces(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

// splitAfter cuts text after every sep, keeping the separator on the left piece.
func splitAfter(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// chunkPage splits one page on its own so no chunk spans two pages.
// Indexes start at first, the number of chunks already emitted for the document.
func (c *Chunker) chunkPage(page core.PageText, first int) []pageChunk {
	texts := c.Split(page.Text)
	out := make([]pageChunk, len(texts))
	for k, text := range texts {
		out[k] = pageChunk{Index: first + k, PageNumber: page.PageNumber, Text: text}
	}
	return out
}

// streamChunk consumes pages from the extractor and emits page-tagged chunks in order.
func (i *DocumentIngestor) streamChunk(
	ctx context.Context,
	g *errgroup.Group,
	pages <-chan core.PageText,
) <-chan pageChunk {
	out := make(chan pageChunk, 8)

	g.Go(func() error {
		defer close(out)

		pos := 0
		for page := range pages {
			for _, ch := range i.chunker.chunkPage(page, pos) {
				select {
				case out <- ch:
				case <-ctx.Done():
					return ctx.Err()
				}
				pos++
			}
		}
		return nil
	})

	return out
}
