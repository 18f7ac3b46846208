package ingestion_engine

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures text length in the embedding model's token units.
type TokenCounter interface {
	CountTokens(text string) int
}

// TiktokenCounter counts BPE tokens the way OpenAI embedding models do.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding, e.g. "cl100k_base".
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding %q: %w", encoding, err)
	}
	return &TiktokenCounter{encoding: enc}, nil
}

func (tc *TiktokenCounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(tc.encoding.Encode(text, nil, nil))
}
