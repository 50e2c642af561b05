package badger

import (
	"testing"

	"github.com/poiesic/docpipe/storage"
	"github.com/stretchr/testify/require"
)

// Stores bundles every store backed by one database instance.
type Stores struct {
	Backend   *Backend
	Pipelines *PipelineRepository
	Content   *ContentRepository
	Queue     *OperationQueue
	Cache     *EmbeddingCache
	Vectors   *VectorStore
}

// NewMemoryStores opens an in-memory backend with every store wired to it.
// The backend is closed automatically when the test finishes.
func NewMemoryStores(t *testing.T, queueOpts ...QueueOption) *Stores {
	t.Helper()

	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	queue, err := NewOperationQueue(backend, queueOpts...)
	require.NoError(t, err)

	return &Stores{
		Backend:   backend,
		Pipelines: NewPipelineRepository(backend),
		Content:   NewContentRepository(backend),
		Queue:     queue,
		Cache:     NewEmbeddingCache(backend, storage.CacheModeReadWrite),
		Vectors:   NewVectorStore(backend),
	}
}
