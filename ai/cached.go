// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"context"
	"log/slog"

	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
)

// CachedEmbedder wraps an Embedder with a content-addressed cache. Texts that
// hash to a stored entry skip the embedding service entirely; misses are
// embedded and written back according to the cache's mode.
type CachedEmbedder struct {
	inner  Embedder
	cache  storage.EmbeddingCache
	logger *slog.Logger
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with cache.
func NewCachedEmbedder(inner Embedder, cache storage.EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{
		inner:  inner,
		cache:  cache,
		logger: slog.Default().With("component", "cached-embedder"),
	}
}

// EmbedText generates or retrieves a vector embedding for a single text.
func (e *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return []float32{}, nil
	}
	return vectors[0], nil
}

// EmbedTexts generates embeddings for a batch, consulting the cache per text.
// Only the texts that miss are sent to the embedding service, in a single
// batched call, and their results are written back to the cache.
func (e *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	keys := make([]core.CacheKey, len(texts))

	var missed []string
	var missedIdx []int
	for i, text := range texts {
		keys[i] = core.EmbeddingCacheKey(text, e.inner.Model(), e.inner.Provider())
		entry, err := e.cache.TryGet(ctx, keys[i])
		if err != nil {
			return nil, err
		}
		if entry != nil {
			results[i] = entry.Vector
			continue
		}
		missed = append(missed, text)
		missedIdx = append(missedIdx, i)
	}

	e.logger.Debug("embedding cache lookup",
		"texts", len(texts), "hits", len(texts)-len(missed), "misses", len(missed))

	if len(missed) == 0 {
		return results, nil
	}

	vectors, err := e.inner.EmbedTexts(ctx, missed)
	if err != nil {
		return nil, err
	}
	for j, vector := range vectors {
		i := missedIdx[j]
		results[i] = vector
		entry := &core.CachedEmbedding{
			Vector:   vector,
			Model:    e.inner.Model(),
			Provider: e.inner.Provider(),
		}
		if err := e.cache.Store(ctx, keys[i], entry); err != nil {
			// A failed cache write costs a future API call, not correctness.
			e.logger.Warn("failed to cache embedding", "err", err)
		}
	}
	return results, nil
}

// Model reports the wrapped embedder's model identifier.
func (e *CachedEmbedder) Model() string {
	return e.inner.Model()
}

// Provider reports the wrapped embedder's provider name.
func (e *CachedEmbedder) Provider() string {
	return e.inner.Provider()
}
