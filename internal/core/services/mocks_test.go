package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
)

// --- Mock implementations ---

// mockEmbedder implements driven.EmbeddingService for testing. It
// returns a deterministic vector per text and records every batch it
// receives.
type mockEmbedder struct {
	batches    [][]string
	embedErr   error
	shortBatch bool
}

// vectorFor derives a small deterministic embedding from the text.
func vectorFor(text string) []float32 {
	var sum float32
	for _, r := range text {
		sum += float32(r)
	}
	return []float32{sum, float32(len(text)), 1}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}

	copied := make([]string, len(texts))
	copy(copied, texts)
	m.batches = append(m.batches, copied)

	n := len(texts)
	if m.shortBatch && n > 0 {
		n--
	}
	out := make([][]float32, n)
	for i := 0; i < n; i++ {
		out[i] = vectorFor(texts[i])
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return 3 }

func (m *mockEmbedder) ModelName() string { return "mock-embed" }

func (m *mockEmbedder) Ping(_ context.Context) error { return nil }

func (m *mockEmbedder) Close() error { return nil }

// mockVectorStore implements driven.VectorStore with injectable errors.
type mockVectorStore struct {
	addErr    error
	queryErr  error
	getErr    error
	deleteErr error

	queryResult []domain.RetrievalMatch
	getResult   []domain.StoredRecord

	addCalls    int
	queryCalls  int
	deleteCalls int
}

func (m *mockVectorStore) Add(_ context.Context, ids []string, embeddings [][]float32, metadatas []domain.RecordMetadata, texts []string) error {
	m.addCalls++
	if m.addErr != nil {
		return m.addErr
	}
	if len(ids) != len(embeddings) || len(ids) != len(metadatas) || len(ids) != len(texts) {
		return fmt.Errorf("%w: mismatched slice lengths", domain.ErrInvalidInput)
	}
	return nil
}

func (m *mockVectorStore) Query(_ context.Context, _ []float32, topK int, _ domain.Filter) ([]domain.RetrievalMatch, error) {
	m.queryCalls++
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if topK > len(m.queryResult) {
		return m.queryResult, nil
	}
	return m.queryResult[:topK], nil
}

func (m *mockVectorStore) GetByFilter(_ context.Context, filter domain.Filter) ([]domain.StoredRecord, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []domain.StoredRecord
	for _, rec := range m.getResult {
		if filter.MatchesDocument(rec.Metadata.DocumentID, rec.Metadata.ModuleCode) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *mockVectorStore) DeleteByFilter(_ context.Context, _ domain.Filter) (int, error) {
	m.deleteCalls++
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	return 0, nil
}

func (m *mockVectorStore) Close() error { return nil }

// match builds a retrieval match for a document.
func match(vectorID, docID string, similarity float64) domain.RetrievalMatch {
	return domain.RetrievalMatch{
		VectorID:   vectorID,
		Similarity: similarity,
		Text:       "text of " + vectorID,
		Metadata: domain.RecordMetadata{
			DocumentID:   docID,
			DocumentName: "Name " + docID,
		},
	}
}
