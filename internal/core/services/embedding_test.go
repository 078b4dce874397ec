package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
)

func TestNewBatcher_DefaultBatchSize(t *testing.T) {
	b := NewBatcher(&mockEmbedder{}, 0)
	assert.Equal(t, DefaultEmbedBatchSize, b.batchSize)

	b = NewBatcher(&mockEmbedder{}, -5)
	assert.Equal(t, DefaultEmbedBatchSize, b.batchSize)
}

func TestEmbedBatch_Empty(t *testing.T) {
	embedder := &mockEmbedder{}
	b := NewBatcher(embedder, 10)

	out, err := b.EmbedBatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Empty(t, embedder.batches)
}

func TestEmbedBatch_NilEmbedder(t *testing.T) {
	b := NewBatcher(nil, 10)

	_, err := b.EmbedBatch(context.Background(), []string{"a"})

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbedBatch_SingleBatch(t *testing.T) {
	embedder := &mockEmbedder{}
	b := NewBatcher(embedder, 10)

	out, err := b.EmbedBatch(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Len(t, embedder.batches, 1)
	assert.Equal(t, []string{"a", "b", "c"}, embedder.batches[0])
}

func TestEmbedBatch_SplitsIntoBoundedBatches(t *testing.T) {
	embedder := &mockEmbedder{}
	b := NewBatcher(embedder, 2)

	texts := []string{"a", "b", "c", "d", "e"}
	out, err := b.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	require.Len(t, out, 5)

	// 5 texts with batch size 2: batches of 2, 2, 1.
	require.Len(t, embedder.batches, 3)
	assert.Equal(t, []string{"a", "b"}, embedder.batches[0])
	assert.Equal(t, []string{"c", "d"}, embedder.batches[1])
	assert.Equal(t, []string{"e"}, embedder.batches[2])
}

func TestEmbedBatch_PreservesGlobalOrder(t *testing.T) {
	embedder := &mockEmbedder{}
	b := NewBatcher(embedder, 2)

	texts := make([]string, 7)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	out, err := b.EmbedBatch(context.Background(), texts)

	require.NoError(t, err)
	require.Len(t, out, len(texts))
	for i, text := range texts {
		assert.Equal(t, vectorFor(text), out[i], "embedding %d out of order", i)
	}
}

func TestEmbedBatch_ProviderErrorAborts(t *testing.T) {
	providerErr := errors.New("provider down")
	embedder := &mockEmbedder{embedErr: providerErr}
	b := NewBatcher(embedder, 2)

	out, err := b.EmbedBatch(context.Background(), []string{"a", "b", "c"})

	assert.ErrorIs(t, err, providerErr)
	assert.Nil(t, out)
}

func TestEmbedBatch_CountMismatchIsError(t *testing.T) {
	embedder := &mockEmbedder{shortBatch: true}
	b := NewBatcher(embedder, 10)

	out, err := b.EmbedBatch(context.Background(), []string{"a", "b", "c"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 2 embeddings for 3 texts")
	assert.Nil(t, out)
}

func TestEmbedOne(t *testing.T) {
	embedder := &mockEmbedder{}
	b := NewBatcher(embedder, 10)

	out, err := b.EmbedOne(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, vectorFor("hello"), out)
	// Single embeds bypass the batch path.
	assert.Empty(t, embedder.batches)
}

func TestEmbedOne_NilEmbedder(t *testing.T) {
	b := NewBatcher(nil, 10)

	_, err := b.EmbedOne(context.Background(), "hello")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
