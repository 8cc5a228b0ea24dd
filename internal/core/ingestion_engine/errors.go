package ingestion_engine

import (
	"errors"
	"fmt"

	"github.com/markdave123-py/contexta-ingest/internal/models"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrNotQueued         = errors.New("document is not queued")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoContent         = errors.New("no content extracted")
	ErrEmptySummary      = errors.New("model returned an empty summary")
)

// FetchError wraps a failure to read the source bytes from blob storage or the web.
type FetchError struct {
	Location string
	Err      error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.Location, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError marks unsupported or corrupt input.
type ExtractionError struct {
	DocumentID string
	Err        error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract document %s: %v", e.DocumentID, e.Err)
}
func (e *ExtractionError) Unwrap() error { return e.Err }

// SegmentationError marks a malformed element sequence.
type SegmentationError struct {
	Index  int
	Reason string
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("segment element %d: %s", e.Index, e.Reason)
}

// EnrichmentFailure is recovered by the pipeline; the chunk keeps its plain text.
type EnrichmentFailure struct {
	ChunkIndex int
	Err        error
}

func (e *EnrichmentFailure) Error() string {
	return fmt.Sprintf("enrich chunk %d: %v", e.ChunkIndex, e.Err)
}
func (e *EnrichmentFailure) Unwrap() error { return e.Err }

// EmbeddingError is fatal for the document.
type EmbeddingError struct {
	Batch int
	Err   error
}

func (e *EmbeddingError) Error() string { return fmt.Sprintf("embed batch %d: %v", e.Batch, e.Err) }
func (e *EmbeddingError) Unwrap() error { return e.Err }

type PersistenceError struct {
	DocumentID string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist chunks of %s: %v", e.DocumentID, e.Err)
}
func (e *PersistenceError) Unwrap() error { return e.Err }

// TransitionError reports a rejected status move.
type TransitionError struct {
	From, To models.IngestionStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", ErrInvalidTransition, e.From, e.To)
}
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
