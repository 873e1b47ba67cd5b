package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction signals a document that could not be parsed as a PDF.
	// Per-document and non-fatal: the rest of the batch continues.
	ErrExtraction = errors.New("extraction failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrIndexUnavailable signals a vector index backend failure.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrGeneration signals a failed or empty chat completion.
	ErrGeneration = errors.New("answer generation failed")
	// ErrConfiguration signals a missing or invalid startup setting,
	// e.g. an absent API credential.
	ErrConfiguration = errors.New("configuration error")
)

// ExtractionError wraps ErrExtraction with the offending filename so the
// caller can report which files of a batch were skipped.
type ExtractionError struct {
	Filename string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Filename, e.Err)
}

func (e *ExtractionError) Unwrap() error { return ErrExtraction }

// NewExtractionError creates an extraction error for a filename.
func NewExtractionError(filename string, err error) error {
	return &ExtractionError{Filename: filename, Err: err}
}

// GenerationError wraps ErrGeneration with the upstream detail and the
// number of attempts made before giving up.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return ErrGeneration }
