// Package driving provides interfaces for use-case entry points (primary/inbound ports).
package driving

import (
	"context"

	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
)

// IngestionService turns extracted document text into verified,
// durably stored vector chunks.
type IngestionService interface {
	// Ingest chunks the text, embeds the chunks in bounded batches,
	// writes them to the vector store and verifies the write landed.
	// Failures are reported as *domain.IngestError attributed to the
	// stage that failed. A failed attempt leaves no partial records
	// for the document.
	Ingest(ctx context.Context, doc domain.Document, text string) (domain.IngestResult, error)

	// Verify re-queries the store with an exact document id filter and
	// reports whether exactly expectedCount records are persisted.
	Verify(ctx context.Context, documentID string, expectedCount int) (bool, error)

	// Delete removes every record for the document and reports how many
	// were removed. A document with no records deletes zero, not an error.
	Delete(ctx context.Context, documentID string) (int, error)

	// ListDocuments returns the distinct stored documents with their
	// chunk counts, ordered by ingestion time.
	ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error)
}
