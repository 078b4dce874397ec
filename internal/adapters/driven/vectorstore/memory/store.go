// Package memory provides an in-memory vector store for tests and
// ephemeral runs. Similarity search is a brute-force cosine scan.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
	"github.com/custodia-labs/ragstore-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is an in-memory implementation of driven.VectorStore.
// Records keep insertion order, which doubles as the stable tie-break
// for equal similarities.
type Store struct {
	mu      sync.RWMutex
	records []domain.StoredRecord
	byID    map[string]int
}

// NewStore creates a new in-memory vector store.
func NewStore() *Store {
	return &Store{
		byID: make(map[string]int),
	}
}

// Add upserts records built from four parallel slices.
func (s *Store) Add(_ context.Context, ids []string, embeddings [][]float32, metadatas []domain.RecordMetadata, texts []string) error {
	if len(ids) != len(embeddings) || len(ids) != len(metadatas) || len(ids) != len(texts) {
		return fmt.Errorf("%w: ids=%d embeddings=%d metadatas=%d texts=%d",
			domain.ErrInvalidInput, len(ids), len(embeddings), len(metadatas), len(texts))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range ids {
		rec := domain.StoredRecord{
			VectorID:  id,
			Embedding: embeddings[i],
			Text:      texts[i],
			Metadata:  metadatas[i],
		}
		if pos, ok := s.byID[id]; ok {
			s.records[pos] = rec
			continue
		}
		s.byID[id] = len(s.records)
		s.records = append(s.records, rec)
	}

	return nil
}

// Query returns up to topK matches ranked by cosine similarity
// descending; ties keep insertion order.
func (s *Store) Query(_ context.Context, embedding []float32, topK int, filter domain.Filter) ([]domain.RetrievalMatch, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		order      int
		similarity float64
		record     domain.StoredRecord
	}

	var candidates []scored
	for i, rec := range s.records {
		if !filter.MatchesDocument(rec.Metadata.DocumentID, rec.Metadata.ModuleCode) {
			continue
		}
		candidates = append(candidates, scored{
			order:      i,
			similarity: cosineSimilarity(embedding, rec.Embedding),
			record:     rec,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}

	matches := make([]domain.RetrievalMatch, topK)
	for i := 0; i < topK; i++ {
		matches[i] = domain.RetrievalMatch{
			VectorID:   candidates[i].record.VectorID,
			Similarity: candidates[i].similarity,
			Text:       candidates[i].record.Text,
			Metadata:   candidates[i].record.Metadata,
		}
	}

	return matches, nil
}

// GetByFilter returns every matching record in insertion order.
func (s *Store) GetByFilter(_ context.Context, filter domain.Filter) ([]domain.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StoredRecord
	for _, rec := range s.records {
		if filter.MatchesDocument(rec.Metadata.DocumentID, rec.Metadata.ModuleCode) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// DeleteByFilter removes all matching records.
func (s *Store) DeleteByFilter(_ context.Context, filter domain.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	deleted := 0
	for _, rec := range s.records {
		if filter.MatchesDocument(rec.Metadata.DocumentID, rec.Metadata.ModuleCode) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept

	s.byID = make(map[string]int, len(s.records))
	for i, rec := range s.records {
		s.byID[rec.VectorID] = i
	}

	return deleted, nil
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched dimensions or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
