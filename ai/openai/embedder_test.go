package openai

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBatcher stands in for the langchaingo embedder, failing a set number of
// requests before succeeding.
type fakeBatcher struct {
	failures   int
	calls      int
	batchSizes []int
}

func (f *fakeBatcher) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batchSizes = append(f.batchSizes, len(texts))
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("503 service unavailable")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i]))}
	}
	return vectors, nil
}

func (f *fakeBatcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func newTestEmbedder(inner *fakeBatcher, batchCap, maxRetries int) *Embedder {
	return &Embedder{
		embedder:   inner,
		model:      "test-model",
		provider:   "test",
		batchCap:   batchCap,
		maxRetries: maxRetries,
		retryDelay: time.Millisecond,
		logger:     slog.Default(),
	}
}

func TestEmbedTextsRetriesTransientFailures(t *testing.T) {
	inner := &fakeBatcher{failures: 2}
	e := newTestEmbedder(inner, 16, 3)

	vectors, err := e.EmbedTexts(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, 3, inner.calls, "two failures then success within the budget")
}

func TestEmbedTextsGivesUpAfterRetryBudget(t *testing.T) {
	inner := &fakeBatcher{failures: 10}
	e := newTestEmbedder(inner, 16, 2)

	_, err := e.EmbedTexts(context.Background(), []string{"alpha"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, 2, inner.calls)
}

func TestEmbedTextsBatchesRequests(t *testing.T) {
	inner := &fakeBatcher{}
	e := newTestEmbedder(inner, 2, 3)

	vectors, err := e.EmbedTexts(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	assert.Len(t, vectors, 5)
	assert.Equal(t, []int{2, 2, 1}, inner.batchSizes)
}

func TestEmbedTextRetries(t *testing.T) {
	inner := &fakeBatcher{failures: 1}
	e := newTestEmbedder(inner, 16, 3)

	vector, err := e.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{5}, vector)
	assert.Equal(t, 2, inner.calls)
}
