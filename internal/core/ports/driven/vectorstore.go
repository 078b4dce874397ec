package driven

import (
	"context"

	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
)

// VectorStore is a persistent vector index supporting similarity search
// and metadata-filtered retrieval and deletion. The store exclusively
// owns persisted records. Implementations must be safe for concurrent
// reads and for concurrent writes to disjoint record ids.
type VectorStore interface {
	// Add upserts records built from four parallel slices. All slices
	// must have equal length or domain.ErrInvalidInput is returned.
	// An existing record with the same id is overwritten.
	Add(ctx context.Context, ids []string, embeddings [][]float32, metadatas []domain.RecordMetadata, texts []string) error

	// Query returns up to topK matches for the embedding, ranked by
	// similarity descending. Ties are broken by insertion order, stable
	// within one process run. The zero filter matches everything.
	Query(ctx context.Context, embedding []float32, topK int, filter domain.Filter) ([]domain.RetrievalMatch, error)

	// GetByFilter returns every record matching the filter, ignoring
	// vector similarity. Used for verification and listing.
	GetByFilter(ctx context.Context, filter domain.Filter) ([]domain.StoredRecord, error)

	// DeleteByFilter removes all matching records and reports how many
	// were removed. A filter matching nothing is a no-op, not an error.
	DeleteByFilter(ctx context.Context, filter domain.Filter) (int, error)

	// Close releases resources.
	Close() error
}
