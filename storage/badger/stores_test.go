package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineRepositoryRoundTrip(t *testing.T) {
	stores := NewMemoryStores(t)
	ctx := context.Background()

	p := core.NewPipeline("docs", core.DefaultSteps(), core.FileRecord{Name: "report.md", MimeType: "text/markdown"})
	p.Tags = map[string][]string{"user": {"alice"}}
	require.NoError(t, stores.Pipelines.SavePipeline(ctx, p))

	loaded, err := stores.Pipelines.GetPipeline(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, loaded.ID)
	assert.Equal(t, "docs", loaded.Index)
	assert.Equal(t, p.Steps, loaded.Steps)
	assert.Equal(t, []string{"alice"}, loaded.Tags["user"])
	require.Len(t, loaded.Files, 1)
	assert.Equal(t, "report.md", loaded.Files[0].Name)

	// Save again after progress and confirm the update sticks.
	step, ok := loaded.NextStep()
	require.True(t, ok)
	require.NoError(t, loaded.CompleteStep(step))
	require.NoError(t, stores.Pipelines.SavePipeline(ctx, loaded))
	reloaded, err := stores.Pipelines.GetPipeline(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, loaded.CompletedSteps, reloaded.CompletedSteps)

	require.NoError(t, stores.Pipelines.DeletePipeline(ctx, p.ID))
	_, err = stores.Pipelines.GetPipeline(ctx, p.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = stores.Pipelines.DeletePipeline(ctx, p.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestContentRepositoryRoundTrip(t *testing.T) {
	stores := NewMemoryStores(t)
	ctx := context.Background()

	record := &core.ContentRecord{
		ID:       "pipe-1/report.md.extract.txt",
		Content:  "extracted text",
		MimeType: "text/plain",
		ByteSize: 14,
	}
	require.NoError(t, stores.Content.UpsertContent(ctx, record))
	assert.False(t, record.CreatedAt.IsZero())

	loaded, err := stores.Content.GetContent(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "extracted text", loaded.Content)
	assert.False(t, loaded.Ready)

	require.NoError(t, stores.Content.SetReady(ctx, record.ID, true))
	loaded, err = stores.Content.GetContent(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Ready)

	assert.ErrorIs(t, stores.Content.SetReady(ctx, "missing", true), storage.ErrNotFound)
}

func TestContentRepositoryDeleteByPrefix(t *testing.T) {
	stores := NewMemoryStores(t)
	ctx := context.Background()

	for _, id := range []string{"pipe-1/a.txt", "pipe-1/b.txt", "pipe-2/a.txt"} {
		require.NoError(t, stores.Content.UpsertContent(ctx, &core.ContentRecord{ID: id, Content: "x"}))
	}

	require.NoError(t, stores.Content.DeleteContentByPrefix(ctx, "pipe-1/"))

	_, err := stores.Content.GetContent(ctx, "pipe-1/a.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = stores.Content.GetContent(ctx, "pipe-1/b.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = stores.Content.GetContent(ctx, "pipe-2/a.txt")
	assert.NoError(t, err)

	// Deleting missing ids is not an error.
	require.NoError(t, stores.Content.DeleteContent(ctx, "pipe-1/a.txt", "never-existed"))
}

func TestEmbeddingCacheModes(t *testing.T) {
	stores := NewMemoryStores(t)
	ctx := context.Background()

	key := core.EmbeddingCacheKey("some text", "text-embedding-3-small", "openai")
	entry := &core.CachedEmbedding{
		Vector:   []float32{0.1, 0.2, 0.3},
		Model:    "text-embedding-3-small",
		Provider: "openai",
	}

	// Miss before store.
	hit, err := stores.Cache.TryGet(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, hit)

	require.NoError(t, stores.Cache.Store(ctx, key, entry))
	assert.False(t, entry.CreatedAt.IsZero())

	hit, err = stores.Cache.TryGet(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, entry.Vector, hit.Vector)
	assert.Equal(t, "openai", hit.Provider)

	// Read-only: stores are dropped silently.
	readOnly := NewEmbeddingCache(stores.Backend, storage.CacheModeReadOnly)
	otherKey := core.EmbeddingCacheKey("other text", "text-embedding-3-small", "openai")
	require.NoError(t, readOnly.Store(ctx, otherKey, entry))
	hit, err = readOnly.TryGet(ctx, otherKey)
	require.NoError(t, err)
	assert.Nil(t, hit)

	// Write-only: lookups always miss, writes land.
	writeOnly := NewEmbeddingCache(stores.Backend, storage.CacheModeWriteOnly)
	hit, err = writeOnly.TryGet(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, hit)
	require.NoError(t, writeOnly.Store(ctx, otherKey, &core.CachedEmbedding{Vector: []float32{1}}))
	hit, err = stores.Cache.TryGet(ctx, otherKey)
	require.NoError(t, err)
	assert.NotNil(t, hit)
}

func makeRecord(id, pipelineID string, vector []float32) *core.MemoryRecord {
	return &core.MemoryRecord{
		ID:         id,
		PipelineID: pipelineID,
		SourceFile: "report.md",
		Text:       "partition text for " + id,
		Vector:     vector,
	}
}

func TestVectorStoreQuery(t *testing.T) {
	stores := NewMemoryStores(t)
	ctx := context.Background()

	require.NoError(t, stores.Vectors.Upsert(ctx, "docs",
		makeRecord("r1", "pipe-1", []float32{1, 0, 0}),
		makeRecord("r2", "pipe-1", []float32{0.9, 0.1, 0}),
		makeRecord("r3", "pipe-2", []float32{0, 1, 0}),
	))

	results, err := stores.Vectors.Query(ctx, "docs", []float32{1, 0, 0}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "r1", results[0].Record.ID)
	assert.Equal(t, "r2", results[1].Record.ID)
	assert.Greater(t, results[0].Score, results[1].Score)

	// Limit trims from the tail.
	results, err = stores.Vectors.Query(ctx, "docs", []float32{1, 0, 0}, 0, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "r1", results[0].Record.ID)

	// Unknown index is empty, not an error.
	results, err = stores.Vectors.Query(ctx, "nope", []float32{1, 0, 0}, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorStoreDeleteByPipeline(t *testing.T) {
	stores := NewMemoryStores(t)
	ctx := context.Background()

	require.NoError(t, stores.Vectors.Upsert(ctx, "docs",
		makeRecord("r1", "pipe-1", []float32{1, 0}),
		makeRecord("r2", "pipe-1", []float32{0, 1}),
		makeRecord("r3", "pipe-2", []float32{1, 1}),
	))

	require.NoError(t, stores.Vectors.DeleteByPipeline(ctx, "docs", "pipe-1"))

	results, err := stores.Vectors.Query(ctx, "docs", []float32{1, 1}, -1, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "r3", results[0].Record.ID)
}

func TestVectorStoreDeleteIndex(t *testing.T) {
	stores := NewMemoryStores(t)
	ctx := context.Background()

	require.NoError(t, stores.Vectors.Upsert(ctx, "docs", makeRecord("r1", "pipe-1", []float32{1})))
	require.NoError(t, stores.Vectors.Upsert(ctx, "notes", makeRecord("r2", "pipe-2", []float32{1})))

	require.NoError(t, stores.Vectors.DeleteIndex(ctx, "docs"))

	results, err := stores.Vectors.Query(ctx, "docs", []float32{1}, -1, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = stores.Vectors.Query(ctx, "notes", []float32{1}, -1, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// Deleting a pipeline's records afterwards must not resurrect anything.
	require.NoError(t, stores.Vectors.DeleteByPipeline(ctx, "docs", "pipe-1"))
}

func TestVectorStoreMismatchedVectorLengths(t *testing.T) {
	stores := NewMemoryStores(t)
	ctx := context.Background()

	require.NoError(t, stores.Vectors.Upsert(ctx, "docs", makeRecord("r1", "pipe-1", []float32{1, 0, 0})))

	// A query vector of the wrong dimension scores zero everywhere.
	results, err := stores.Vectors.Query(ctx, "docs", []float32{1, 0}, 0.1, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestContentRecordTimestamps(t *testing.T) {
	stores := NewMemoryStores(t)
	ctx := context.Background()

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	record := &core.ContentRecord{ID: "keep-created", Content: "x", CreatedAt: created}
	require.NoError(t, stores.Content.UpsertContent(ctx, record))

	loaded, err := stores.Content.GetContent(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, created, loaded.CreatedAt)
	assert.True(t, loaded.UpdatedAt.After(created))
}

func TestClosedBackendReturnsStorageClosed(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	repo := NewPipelineRepository(backend)
	require.NoError(t, backend.Close())

	_, err = repo.GetPipeline(context.Background(), "anything")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	p := core.NewPipeline("docs", core.DefaultSteps())
	assert.ErrorIs(t, repo.SavePipeline(context.Background(), p), storage.ErrStorageClosed)
}
