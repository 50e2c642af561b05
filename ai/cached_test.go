package ai

import (
	"context"
	"sync"
	"testing"

	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder records which texts reached the embedding service.
type countingEmbedder struct {
	mu       sync.Mutex
	embedded []string
}

func (e *countingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *countingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		e.embedded = append(e.embedded, text)
		vectors[i] = []float32{float32(len(text))}
	}
	return vectors, nil
}

func (e *countingEmbedder) Model() string    { return "test-model" }
func (e *countingEmbedder) Provider() string { return "test" }

// mapCache is an in-memory storage.EmbeddingCache for unit tests.
type mapCache struct {
	mu      sync.Mutex
	entries map[core.CacheKey]*core.CachedEmbedding
	mode    storage.CacheMode
}

func newMapCache(mode storage.CacheMode) *mapCache {
	return &mapCache{entries: map[core.CacheKey]*core.CachedEmbedding{}, mode: mode}
}

func (c *mapCache) TryGet(ctx context.Context, key core.CacheKey) (*core.CachedEmbedding, error) {
	if c.mode == storage.CacheModeWriteOnly {
		return nil, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key], nil
}

func (c *mapCache) Store(ctx context.Context, key core.CacheKey, entry *core.CachedEmbedding) error {
	if c.mode == storage.CacheModeReadOnly {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	return nil
}

func (c *mapCache) Mode() storage.CacheMode { return c.mode }
func (c *mapCache) Close() error            { return nil }

func TestCachedEmbedderSkipsCachedTexts(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	cache := newMapCache(storage.CacheModeReadWrite)
	embedder := NewCachedEmbedder(inner, cache)

	first, err := embedder.EmbedTexts(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Len(t, inner.embedded, 2)

	// Second pass: both texts cached, the service sees nothing new.
	second, err := embedder.EmbedTexts(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, inner.embedded, 2)

	// Mixed batch: only the new text hits the service.
	third, err := embedder.EmbedTexts(ctx, []string{"alpha", "gamma"})
	require.NoError(t, err)
	require.Len(t, third, 2)
	assert.Equal(t, first[0], third[0])
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, inner.embedded)
}

func TestCachedEmbedderWhitespaceNormalization(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	embedder := NewCachedEmbedder(inner, newMapCache(storage.CacheModeReadWrite))

	_, err := embedder.EmbedText(ctx, "hello world")
	require.NoError(t, err)

	// Leading and trailing whitespace hashes to the same cache entry.
	_, err = embedder.EmbedText(ctx, "  hello world\n")
	require.NoError(t, err)
	assert.Len(t, inner.embedded, 1)
}

func TestCachedEmbedderReadOnlyNeverWrites(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	cache := newMapCache(storage.CacheModeReadOnly)
	embedder := NewCachedEmbedder(inner, cache)

	_, err := embedder.EmbedText(ctx, "alpha")
	require.NoError(t, err)
	_, err = embedder.EmbedText(ctx, "alpha")
	require.NoError(t, err)

	// Every call reaches the service because nothing is ever stored.
	assert.Len(t, inner.embedded, 2)
	assert.Empty(t, cache.entries)
}

func TestCachedEmbedderPassesThroughModelAndProvider(t *testing.T) {
	embedder := NewCachedEmbedder(&countingEmbedder{}, newMapCache(storage.CacheModeReadWrite))
	assert.Equal(t, "test-model", embedder.Model())
	assert.Equal(t, "test", embedder.Provider())
}
