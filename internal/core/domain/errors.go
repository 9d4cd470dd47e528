package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// Per-file ingestion errors. None of these abort a scan cycle.

	// ErrUnsupportedFormat indicates the file type has no extraction handler.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtraction indicates text extraction failed after any fallback.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmptyDocument indicates extraction produced no characters to index.
	ErrEmptyDocument = errors.New("empty document")

	// ErrEmbeddingOrStore indicates embedding or the vector store failed.
	// The registry is not committed so the file is retried next cycle.
	ErrEmbeddingOrStore = errors.New("embedding or vector store failure")

	// ErrFileTooLarge indicates the file exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrTranscriptionUnavailable indicates the audio transcription service
	// is not configured or not reachable.
	ErrTranscriptionUnavailable = errors.New("transcription service unavailable")

	// Registry and scheduler errors.

	// ErrRegistryCorruption indicates the persisted registry could not be decoded.
	ErrRegistryCorruption = errors.New("registry corrupted")

	// ErrScanInProgress indicates a scan is already running.
	ErrScanInProgress = errors.New("scan in progress")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// ExtractionError describes why a file could not be turned into text.
// It always matches ErrExtraction with errors.Is.
type ExtractionError struct {
	// Path is the file that failed.
	Path string

	// Reason is a short operator-facing explanation.
	Reason string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Path, e.Reason)
}

// Unwrap exposes the cause for errors.Is / errors.As.
func (e *ExtractionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrExtraction, e.Err}
	}
	return []error{ErrExtraction}
}

// NewExtractionError builds an ExtractionError.
func NewExtractionError(path, reason string, err error) *ExtractionError {
	return &ExtractionError{Path: path, Reason: reason, Err: err}
}
