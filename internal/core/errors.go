package core

import (
	"errors"
	"fmt"
)

// UnsupportedFormatError rejects an upload that is not a PDF.
type UnsupportedFormatError struct {
	FileName string
	Reason   string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format for %q: %s", e.FileName, e.Reason)
}

// ExtractionError reports a PDF that could not be parsed at all.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract pdf: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError wraps a provider or transport failure.
// ChunkIndex is the position of the first failing chunk, or -1 when not tied to one.
type EmbeddingError struct {
	Provider   string
	ChunkIndex int
	Err        error
}

func (e *EmbeddingError) Error() string {
	if e.ChunkIndex >= 0 {
		return fmt.Sprintf("embed chunk %d with %s: %v", e.ChunkIndex, e.Provider, e.Err)
	}
	return fmt.Sprintf("embed with %s: %v", e.Provider, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// PersistenceError wraps a store or file storage failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func IsUnsupportedFormat(err error) bool {
	var target *UnsupportedFormatError
	return errors.As(err, &target)
}

func IsExtraction(err error) bool {
	var target *ExtractionError
	return errors.As(err, &target)
}

func IsEmbedding(err error) bool {
	var target *EmbeddingError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}
