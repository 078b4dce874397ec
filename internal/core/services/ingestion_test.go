package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore-cli/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/ragstore-cli/internal/chunker"
	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
)

// newTestIngestion wires an ingestion service over the in-memory store.
func newTestIngestion(t *testing.T) (*IngestionService, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	batcher := NewBatcher(&mockEmbedder{}, 10)
	splitter := chunker.New(chunker.WithChunkSize(50), chunker.WithOverlap(10))

	svc := NewIngestionService(store, batcher, splitter)
	svc.now = func() time.Time {
		return time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)
	}
	return svc, store
}

func TestIngest_HappyPath(t *testing.T) {
	svc, store := newTestIngestion(t)
	ctx := context.Background()

	doc := domain.Document{ID: "doc-1", Name: "Lecture Notes", ModuleCode: "CS101"}
	text := strings.Repeat("some lecture content here ", 20)

	result, err := svc.Ingest(ctx, doc, text)

	require.NoError(t, err)
	assert.Equal(t, "doc-1", result.DocumentID)
	assert.Greater(t, result.ChunksCreated, 1)

	records, err := store.GetByFilter(ctx, domain.Filter{DocumentID: "doc-1"})
	require.NoError(t, err)
	require.Len(t, records, result.ChunksCreated)

	for i, rec := range records {
		assert.Equal(t, VectorID("doc-1", i), rec.VectorID)
		assert.Equal(t, "doc-1", rec.Metadata.DocumentID)
		assert.Equal(t, "Lecture Notes", rec.Metadata.DocumentName)
		assert.Equal(t, "CS101", rec.Metadata.ModuleCode)
		assert.Equal(t, i, rec.Metadata.ChunkIndex)
		assert.Equal(t, result.ChunksCreated, rec.Metadata.ChunkTotal)
		assert.NotEmpty(t, rec.Text)
		assert.NotEmpty(t, rec.Embedding)
	}
}

func TestIngest_EmptyDocumentID(t *testing.T) {
	svc, _ := newTestIngestion(t)

	_, err := svc.Ingest(context.Background(), domain.Document{}, "text")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngest_EmptyTextSucceedsWithZeroChunks(t *testing.T) {
	svc, store := newTestIngestion(t)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, domain.Document{ID: "doc-1"}, "   \n\n  ")

	require.NoError(t, err)
	assert.Equal(t, 0, result.ChunksCreated)

	records, err := store.GetByFilter(ctx, domain.Filter{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestIngest_ReingestReplacesRecords(t *testing.T) {
	svc, store := newTestIngestion(t)
	ctx := context.Background()
	doc := domain.Document{ID: "doc-1", Name: "Notes"}

	first, err := svc.Ingest(ctx, doc, strings.Repeat("original content ", 30))
	require.NoError(t, err)
	require.Greater(t, first.ChunksCreated, 1)

	second, err := svc.Ingest(ctx, doc, "replacement text")
	require.NoError(t, err)
	assert.Equal(t, 1, second.ChunksCreated)

	records, err := store.GetByFilter(ctx, domain.Filter{DocumentID: "doc-1"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "replacement text", records[0].Text)
}

func TestIngest_Idempotent(t *testing.T) {
	svc, store := newTestIngestion(t)
	ctx := context.Background()
	doc := domain.Document{ID: "doc-1", Name: "Notes"}
	text := strings.Repeat("stable content for idempotence ", 15)

	first, err := svc.Ingest(ctx, doc, text)
	require.NoError(t, err)

	second, err := svc.Ingest(ctx, doc, text)
	require.NoError(t, err)
	assert.Equal(t, first.ChunksCreated, second.ChunksCreated)

	records, err := store.GetByFilter(ctx, domain.Filter{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Len(t, records, first.ChunksCreated)
}

func TestIngest_EmbeddingFailureLeavesNoRecords(t *testing.T) {
	store := memory.NewStore()
	batcher := NewBatcher(&mockEmbedder{embedErr: errors.New("provider down")}, 10)
	svc := NewIngestionService(store, batcher, chunker.New())
	ctx := context.Background()

	_, err := svc.Ingest(ctx, domain.Document{ID: "doc-1"}, "some text")

	var ingestErr *domain.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, domain.StageEmbedding, ingestErr.Stage)
	assert.Equal(t, "doc-1", ingestErr.DocumentID)

	records, err := store.GetByFilter(ctx, domain.Filter{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestIngest_StoreWriteFailureCleansUp(t *testing.T) {
	store := &mockVectorStore{addErr: errors.New("disk full")}
	batcher := NewBatcher(&mockEmbedder{}, 10)
	svc := NewIngestionService(store, batcher, chunker.New())

	_, err := svc.Ingest(context.Background(), domain.Document{ID: "doc-1"}, "some text")

	var ingestErr *domain.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, domain.StageStoreWrite, ingestErr.Stage)

	// One delete for the replace pass, one for cleanup.
	assert.Equal(t, 2, store.deleteCalls)
}

func TestIngest_VerificationMismatchFails(t *testing.T) {
	// Add succeeds but the store reports no persisted records.
	store := &mockVectorStore{}
	batcher := NewBatcher(&mockEmbedder{}, 10)
	svc := NewIngestionService(store, batcher, chunker.New())

	_, err := svc.Ingest(context.Background(), domain.Document{ID: "doc-1"}, "some text")

	var ingestErr *domain.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, domain.StageVerification, ingestErr.Stage)
	assert.ErrorIs(t, err, domain.ErrVerificationFailed)
	assert.Equal(t, 2, store.deleteCalls)
}

func TestIngest_SameDocumentInFlightFailsFast(t *testing.T) {
	svc, _ := newTestIngestion(t)

	require.True(t, svc.acquire("doc-1"))

	_, err := svc.Ingest(context.Background(), domain.Document{ID: "doc-1"}, "text")
	assert.ErrorIs(t, err, domain.ErrIngestInProgress)

	// A different document is unaffected.
	_, err = svc.Ingest(context.Background(), domain.Document{ID: "doc-2"}, "text")
	assert.NoError(t, err)

	svc.release("doc-1")
	_, err = svc.Ingest(context.Background(), domain.Document{ID: "doc-1"}, "text")
	assert.NoError(t, err)
}

func TestVerify(t *testing.T) {
	svc, _ := newTestIngestion(t)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, domain.Document{ID: "doc-1"}, strings.Repeat("content ", 30))
	require.NoError(t, err)

	ok, err := svc.Verify(ctx, "doc-1", result.ChunksCreated)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Verify(ctx, "doc-1", result.ChunksCreated+1)
	require.NoError(t, err)
	assert.False(t, ok)

	// Unknown document has zero records.
	ok, err = svc.Verify(ctx, "missing", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestIngestion(t)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, domain.Document{ID: "doc-1"}, strings.Repeat("content ", 30))
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, result.ChunksCreated, deleted)

	// Deleting again removes nothing and is not an error.
	deleted, err = svc.Delete(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestDelete_EmptyID(t *testing.T) {
	svc, _ := newTestIngestion(t)

	_, err := svc.Delete(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListDocuments(t *testing.T) {
	svc, _ := newTestIngestion(t)
	ctx := context.Background()

	times := []time.Time{
		time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
	idx := 0
	svc.now = func() time.Time {
		t := times[idx]
		if idx < len(times)-1 {
			idx++
		}
		return t
	}

	_, err := svc.Ingest(ctx, domain.Document{ID: "doc-a", Name: "First"}, strings.Repeat("alpha ", 40))
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, domain.Document{ID: "doc-b", Name: "Second"}, "beta")
	require.NoError(t, err)

	docs, err := svc.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "doc-a", docs[0].ID)
	assert.Equal(t, "First", docs[0].Name)
	assert.Greater(t, docs[0].ChunkCount, 1)
	assert.Equal(t, times[0], docs[0].IngestedAt)

	assert.Equal(t, "doc-b", docs[1].ID)
	assert.Equal(t, 1, docs[1].ChunkCount)
}

func TestListDocuments_Empty(t *testing.T) {
	svc, _ := newTestIngestion(t)

	docs, err := svc.ListDocuments(context.Background())

	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestVectorID(t *testing.T) {
	assert.Equal(t, "doc-1_chunk_0", VectorID("doc-1", 0))
	assert.Equal(t, "doc-1_chunk_12", VectorID("doc-1", 12))
}
