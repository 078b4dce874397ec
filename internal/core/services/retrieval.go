package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
	"github.com/custodia-labs/ragstore-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore-cli/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// DefaultTopK is the default number of matches selected per retrieval.
const DefaultTopK = 15

// Extended-pool sizing parameters. A single top-k query ranked purely by
// global similarity starves documents that are on-topic but never
// top-ranked, so the store is oversampled before selection. These are
// tuning knobs, not contracts.
const (
	// poolPerDocument is the number of candidates fetched per document.
	poolPerDocument = 3

	// poolPerResult is the oversampling factor applied to topK for small
	// candidate sets.
	poolPerResult = 5

	// poolCap bounds the pool for large candidate sets.
	poolCap = 150

	// poolDocumentThreshold separates the small and large sizing regimes.
	poolDocumentThreshold = 10
)

// contextSeparator joins rendered context blocks.
const contextSeparator = "\n\n---\n\n"

// RetrievalService assembles a diversity-balanced context window: it
// trades a little pure-similarity optimality for guaranteed per-document
// representation across the caller-selected documents.
type RetrievalService struct {
	store   driven.VectorStore
	batcher *Batcher
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(store driven.VectorStore, batcher *Batcher) *RetrievalService {
	return &RetrievalService{
		store:   store,
		batcher: batcher,
	}
}

// Retrieve embeds the query, oversamples candidates with one filtered
// similarity query and selects up to topK matches so every candidate
// document with relevant material is represented.
//
// Provider or store failures degrade to an empty result: the caller is
// expected to fall back to a no-context answer path, so a failed
// retrieval must read as "no relevant material found", never crash.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, documentIDs []string, topK int) (domain.RetrievalResult, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q, documents: %d, topK: %d", query, len(documentIDs), topK)

	// No candidate documents means nothing to retrieve; the embedding
	// provider is not invoked.
	if len(documentIDs) == 0 {
		logger.Warn("No documents selected for retrieval")
		return emptyResult(), nil
	}

	if topK <= 0 {
		topK = DefaultTopK
	}

	if s.store == nil || s.batcher == nil {
		logger.Warn("Retrieval unavailable: store or embedding service not configured")
		return emptyResult(), nil
	}

	queryEmbedding, err := s.batcher.EmbedOne(ctx, query)
	if err != nil {
		logger.Warn("Query embedding failed: %v", err)
		return emptyResult(), nil
	}

	poolSize := extendedPoolSize(len(documentIDs), topK)
	logger.Debug("Extended pool size: %d", poolSize)

	matches, err := s.store.Query(ctx, queryEmbedding, poolSize, domain.Filter{DocumentIDs: documentIDs})
	if err != nil {
		logger.Warn("Vector store query failed: %v", err)
		return emptyResult(), nil
	}
	logger.Debug("Pool returned %d matches", len(matches))

	selected := selectDiverse(matches, documentIDs, topK)
	result := assembleContext(selected, matches, documentIDs)

	logger.Info("Retrieved context: %d characters from %d chunks, %d/%d documents covered (%.0f%%)",
		result.CharCount, result.ChunkCount, result.DocumentsCovered,
		len(documentIDs), result.CoveragePct)

	return result, nil
}

// extendedPoolSize computes how many candidates to fetch before
// selection. Large candidate sets scale with the document count (capped);
// small sets oversample relative to topK so grouping by document still
// leaves most documents with at least one candidate.
func extendedPoolSize(documents, topK int) int {
	if documents > poolDocumentThreshold {
		size := documents * poolPerDocument
		if size > poolCap {
			return poolCap
		}
		return size
	}

	size := topK * poolPerResult
	if perDoc := documents * poolPerDocument; perDoc > size {
		size = perDoc
	}
	return size
}

// selectDiverse picks up to topK matches in three phases:
//
//  1. primary coverage — each document's best match, in caller order;
//  2. secondary coverage — second-best matches of still-uncovered
//     documents, in caller order;
//  3. fill — remaining slots from the global ranked list.
//
// The "best" match within a document group is the store's own ranking;
// no secondary tie-break is imposed.
func selectDiverse(matches []domain.RetrievalMatch, documentIDs []string, topK int) []domain.RetrievalMatch {
	// Group by document, preserving each group's ranked order.
	groups := make(map[string][]domain.RetrievalMatch, len(documentIDs))
	for _, m := range matches {
		id := m.Metadata.DocumentID
		groups[id] = append(groups[id], m)
	}

	selected := make([]domain.RetrievalMatch, 0, topK)
	chosen := make(map[string]bool, topK)
	covered := make(map[string]bool, len(documentIDs))

	appendMatch := func(m domain.RetrievalMatch) {
		selected = append(selected, m)
		chosen[m.VectorID] = true
		covered[m.Metadata.DocumentID] = true
	}

	// Phase 1: primary coverage.
	for _, id := range documentIDs {
		if len(selected) >= topK {
			break
		}
		if group := groups[id]; len(group) > 0 {
			appendMatch(group[0])
		}
	}

	// Phase 2: secondary coverage.
	for _, id := range documentIDs {
		if len(selected) >= topK {
			break
		}
		if covered[id] {
			continue
		}
		if group := groups[id]; len(group) > 1 {
			appendMatch(group[1])
		}
	}

	// Phase 3: fill from the global ranked list.
	for _, m := range matches {
		if len(selected) >= topK {
			break
		}
		if !chosen[m.VectorID] {
			appendMatch(m)
		}
	}

	return selected
}

// assembleContext renders the selected matches into one attributed
// context string and computes coverage stats over the rendered blocks,
// so skipped empty chunks do not inflate counts.
func assembleContext(selected, pool []domain.RetrievalMatch, documentIDs []string) domain.RetrievalResult {
	blocks := make([]string, 0, len(selected))
	rendered := make([]domain.RetrievalMatch, 0, len(selected))
	renderedDocs := make(map[string]bool, len(documentIDs))

	for _, m := range selected {
		if m.Text == "" {
			continue
		}
		name := m.Metadata.DocumentName
		if name == "" {
			name = "Unknown Document"
		}
		blocks = append(blocks, fmt.Sprintf("[Source: %s]\n%s", name, m.Text))
		rendered = append(rendered, m)
		renderedDocs[m.Metadata.DocumentID] = true
	}

	contextStr := strings.Join(blocks, contextSeparator)

	// Coverage denominator: candidate documents that had at least one
	// match in the selection pool. Documents with zero matches cannot be
	// covered and are reported as uncovered, not as errors.
	matchable := make(map[string]bool, len(documentIDs))
	for _, m := range pool {
		matchable[m.Metadata.DocumentID] = true
	}

	var uncovered []string
	for _, id := range documentIDs {
		if !renderedDocs[id] {
			uncovered = append(uncovered, id)
		}
	}

	coverage := 0.0
	if len(matchable) > 0 {
		coverage = float64(len(renderedDocs)) / float64(len(matchable)) * 100
	}

	return domain.RetrievalResult{
		Context:            contextStr,
		CharCount:          utf8.RuneCountInString(contextStr),
		ChunkCount:         len(blocks),
		DocumentsCovered:   len(renderedDocs),
		CoveragePct:        coverage,
		UncoveredDocuments: uncovered,
		Matches:            rendered,
	}
}

// emptyResult is the degraded "no relevant material found" result.
func emptyResult() domain.RetrievalResult {
	return domain.RetrievalResult{CoveragePct: 0}
}
