package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
	"github.com/custodia-labs/ragstore-cli/internal/core/ports/driven"
	"github.com/custodia-labs/ragstore-cli/internal/logger"
)

// DefaultEmbedBatchSize bounds how many texts are sent to the embedding
// provider per request, capping peak memory and request size.
const DefaultEmbedBatchSize = 50

// Batcher converts chunk texts into embedding vectors in bounded,
// strictly sequential batches. It fails atomically: if any batch call
// errors, the whole operation reports failure and no partial result is
// returned. There is no caching across calls.
type Batcher struct {
	embedder  driven.EmbeddingService
	batchSize int
}

// NewBatcher creates a batcher over the given embedding service.
// A non-positive batchSize falls back to DefaultEmbedBatchSize.
func NewBatcher(embedder driven.EmbeddingService, batchSize int) *Batcher {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &Batcher{
		embedder:  embedder,
		batchSize: batchSize,
	}
}

// EmbedBatch embeds texts in groups of at most the configured batch
// size, one provider call per group, in order. The result preserves the
// original global order. Batch i+1 is not started before batch i
// completes.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if b.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		group := texts[start:end]
		embeddings, err := b.embedder.EmbedBatch(ctx, group)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d: %w", start/b.batchSize+1, err)
		}
		if len(embeddings) != len(group) {
			return nil, fmt.Errorf("embed batch %d: provider returned %d embeddings for %d texts",
				start/b.batchSize+1, len(embeddings), len(group))
		}

		all = append(all, embeddings...)
		logger.Debug("Embedded batch %d (%d texts)", start/b.batchSize+1, len(group))
	}

	logger.Debug("Embedded %d texts in total", len(texts))
	return all, nil
}

// EmbedOne embeds a single text, bypassing batching entirely.
func (b *Batcher) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if b.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return b.embedder.Embed(ctx, text)
}
