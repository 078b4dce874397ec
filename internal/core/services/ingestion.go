package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/ragstore-cli/internal/chunker"
	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
	"github.com/custodia-labs/ragstore-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore-cli/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionService runs the chunk -> embed -> store -> verify pipeline.
//
// Cross-document ingestions may run concurrently; ingestions for the
// same document id are serialized — a second attempt while one is in
// flight fails fast with domain.ErrIngestInProgress. A failed attempt
// leaves no partial records for the document.
type IngestionService struct {
	store    driven.VectorStore
	batcher  *Batcher
	splitter *chunker.Splitter

	mu       sync.Mutex
	inFlight map[string]struct{}

	// now is swappable for tests.
	now func() time.Time
}

// NewIngestionService creates a new ingestion service.
func NewIngestionService(store driven.VectorStore, batcher *Batcher, splitter *chunker.Splitter) *IngestionService {
	return &IngestionService{
		store:    store,
		batcher:  batcher,
		splitter: splitter,
		inFlight: make(map[string]struct{}),
		now:      time.Now,
	}
}

// Ingest chunks text, embeds the chunks in bounded batches, writes them
// to the vector store and verifies the write actually landed. The write
// for a document id replaces any records stored under it before.
func (s *IngestionService) Ingest(ctx context.Context, doc domain.Document, text string) (domain.IngestResult, error) {
	result := domain.IngestResult{DocumentID: doc.ID}

	if doc.ID == "" {
		return result, fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}
	if s.store == nil {
		return result, domain.ErrVectorStoreUnavailable
	}
	if s.batcher == nil {
		return result, domain.ErrEmbeddingUnavailable
	}

	if !s.acquire(doc.ID) {
		return result, fmt.Errorf("%w: %s", domain.ErrIngestInProgress, doc.ID)
	}
	defer s.release(doc.ID)

	logger.Section("Ingestion")
	logger.Debug("Document: id=%s name=%q", doc.ID, doc.Name)

	// A document is immutable once chunked: re-ingesting an id replaces
	// whatever was stored under it.
	if deleted, err := s.store.DeleteByFilter(ctx, domain.Filter{DocumentID: doc.ID}); err != nil {
		return result, domain.NewIngestError(domain.StageStoreWrite, doc.ID, fmt.Errorf("delete previous records: %w", err))
	} else if deleted > 0 {
		logger.Info("Replaced %d existing records for document %s", deleted, doc.ID)
	}

	chunks := s.splitter.Split(doc, text)
	logger.Debug("Chunked into %d chunks (size=%d, overlap=%d)",
		len(chunks), s.splitter.ChunkSize(), s.splitter.Overlap())
	if len(chunks) == 0 {
		// Empty or whitespace-only text is not an error; there is just
		// nothing to store.
		return result, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := s.batcher.EmbedBatch(ctx, texts)
	if err != nil {
		return result, domain.NewIngestError(domain.StageEmbedding, doc.ID, err)
	}

	ids := make([]string, len(chunks))
	metadatas := make([]domain.RecordMetadata, len(chunks))
	ingestedAt := s.now().UTC()
	for i, c := range chunks {
		ids[i] = VectorID(doc.ID, c.Index)
		metadatas[i] = domain.RecordMetadata{
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			ChunkIndex:   c.Index,
			ChunkTotal:   c.Total,
			ModuleCode:   doc.ModuleCode,
			IngestedAt:   ingestedAt,
		}
	}

	if err := s.store.Add(ctx, ids, embeddings, metadatas, texts); err != nil {
		s.cleanup(ctx, doc.ID)
		return result, domain.NewIngestError(domain.StageStoreWrite, doc.ID, err)
	}
	logger.Info("Wrote %d records for document %s", len(ids), doc.ID)

	// A successful Add does not guarantee the records are durably
	// indexed; verification failure is an ingestion failure.
	ok, err := s.Verify(ctx, doc.ID, len(chunks))
	if err != nil {
		s.cleanup(ctx, doc.ID)
		return result, domain.NewIngestError(domain.StageVerification, doc.ID, err)
	}
	if !ok {
		s.cleanup(ctx, doc.ID)
		return result, domain.NewIngestError(domain.StageVerification, doc.ID, domain.ErrVerificationFailed)
	}
	logger.Info("Verified %d records persisted for document %s", len(ids), doc.ID)

	result.ChunksCreated = len(chunks)
	return result, nil
}

// Verify re-queries the store with an exact document id filter and
// compares the persisted record count to expectedCount. No vector
// similarity is involved.
func (s *IngestionService) Verify(ctx context.Context, documentID string, expectedCount int) (bool, error) {
	if s.store == nil {
		return false, domain.ErrVectorStoreUnavailable
	}

	records, err := s.store.GetByFilter(ctx, domain.Filter{DocumentID: documentID})
	if err != nil {
		return false, fmt.Errorf("verify %s: %w", documentID, err)
	}

	if len(records) != expectedCount {
		logger.Warn("Verification mismatch for %s: expected %d records, found %d",
			documentID, expectedCount, len(records))
		return false, nil
	}
	return true, nil
}

// Delete removes every record for the document. Deleting a document
// with no records removes zero and is not an error.
func (s *IngestionService) Delete(ctx context.Context, documentID string) (int, error) {
	if s.store == nil {
		return 0, domain.ErrVectorStoreUnavailable
	}
	if documentID == "" {
		return 0, fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}

	deleted, err := s.store.DeleteByFilter(ctx, domain.Filter{DocumentID: documentID})
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", documentID, err)
	}

	logger.Info("Deleted %d records for document %s", deleted, documentID)
	return deleted, nil
}

// ListDocuments returns the distinct stored documents with chunk counts,
// ordered by ingestion time, then id.
func (s *IngestionService) ListDocuments(ctx context.Context) ([]domain.DocumentInfo, error) {
	if s.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	records, err := s.store.GetByFilter(ctx, domain.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	byID := make(map[string]*domain.DocumentInfo)
	for _, rec := range records {
		info, ok := byID[rec.Metadata.DocumentID]
		if !ok {
			info = &domain.DocumentInfo{
				ID:         rec.Metadata.DocumentID,
				Name:       rec.Metadata.DocumentName,
				IngestedAt: rec.Metadata.IngestedAt,
			}
			byID[rec.Metadata.DocumentID] = info
		}
		info.ChunkCount++
	}

	infos := make([]domain.DocumentInfo, 0, len(byID))
	for _, info := range byID {
		infos = append(infos, *info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].IngestedAt.Equal(infos[j].IngestedAt) {
			return infos[i].IngestedAt.Before(infos[j].IngestedAt)
		}
		return infos[i].ID < infos[j].ID
	})

	return infos, nil
}

// VectorID derives the deterministic record id for a chunk.
func VectorID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, chunkIndex)
}

// acquire reserves the in-flight slot for a document id.
func (s *IngestionService) acquire(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[documentID]; busy {
		return false
	}
	s.inFlight[documentID] = struct{}{}
	return true
}

// release frees the in-flight slot for a document id.
func (s *IngestionService) release(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, documentID)
}

// cleanup best-effort deletes the records of a failed attempt so no
// partial state remains attributable to the document.
func (s *IngestionService) cleanup(ctx context.Context, documentID string) {
	if _, err := s.store.DeleteByFilter(ctx, domain.Filter{DocumentID: documentID}); err != nil {
		logger.Warn("Cleanup after failed ingestion of %s failed: %v", documentID, err)
	}
}
