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

	// ErrIngestInProgress indicates an ingestion for the same document id
	// is already running. Same-document ingestion is serialized.
	ErrIngestInProgress = errors.New("ingestion already in progress for document")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Ingestion and retrieval are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrVerificationFailed indicates a write reported success but the
	// re-queried record count did not match the expected count.
	ErrVerificationFailed = errors.New("persistence verification failed")
)

// IngestStage identifies the pipeline stage an ingestion failed in.
type IngestStage string

// Ingestion pipeline stages, in execution order.
const (
	StageChunking     IngestStage = "chunking"
	StageEmbedding    IngestStage = "embedding"
	StageStoreWrite   IngestStage = "store-write"
	StageVerification IngestStage = "verification"
)

// IngestError is an ingestion failure attributed to a pipeline stage,
// so callers can react per stage (an embedding failure is retryable;
// a verification failure requires re-running the whole write).
type IngestError struct {
	// Stage is the pipeline stage that failed.
	Stage IngestStage

	// DocumentID is the document whose ingestion failed.
	DocumentID string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %s stage failed: %v", e.DocumentID, e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IngestError) Unwrap() error {
	return e.Err
}

// NewIngestError builds a stage-attributed ingestion error.
func NewIngestError(stage IngestStage, documentID string, err error) *IngestError {
	return &IngestError{Stage: stage, DocumentID: documentID, Err: err}
}
