package storage

import (
	"context"
	"time"

	"github.com/poiesic/docpipe/core"
)

// PipelineRepository persists pipeline state so ingestion can resume after a
// crash. Implementations must be thread-safe and support concurrent access.
type PipelineRepository interface {
	// SavePipeline upserts a pipeline record keyed by its id.
	SavePipeline(ctx context.Context, p *core.Pipeline) error

	// GetPipeline retrieves a pipeline by id.
	// Returns ErrNotFound if the pipeline doesn't exist.
	GetPipeline(ctx context.Context, id string) (*core.Pipeline, error)

	// DeletePipeline removes a pipeline record.
	// Returns ErrNotFound if the pipeline doesn't exist.
	DeletePipeline(ctx context.Context, id string) error

	// Close closes the repository and releases resources.
	Close() error
}

// ContentRepository is the durable record of ingested content items and the
// artifacts handlers generate from them.
type ContentRepository interface {
	// UpsertContent writes a content record keyed by its id.
	UpsertContent(ctx context.Context, record *core.ContentRecord) error

	// GetContent retrieves a content record by id.
	// Returns ErrNotFound if the record doesn't exist.
	GetContent(ctx context.Context, id string) (*core.ContentRecord, error)

	// DeleteContent removes content records by id. Missing ids are ignored so
	// cleanup handlers stay idempotent.
	DeleteContent(ctx context.Context, ids ...string) error

	// DeleteContentByPrefix removes every content record whose id starts with
	// the given prefix. Used to drop all artifacts of one pipeline.
	DeleteContentByPrefix(ctx context.Context, prefix string) error

	// SetReady flips the externally observable ingestion-complete flag.
	// Returns ErrNotFound if the record doesn't exist.
	SetReady(ctx context.Context, id string, ready bool) error

	// Close closes the repository and releases resources.
	Close() error
}

// OperationQueue is the durable, crash-recoverable work queue. Claiming an
// operation sets its lock timestamp atomically; a worker that dies leaves a
// stale lock that expires and becomes re-claimable.
type OperationQueue interface {
	// Enqueue durably writes an operation. The write is an id-based upsert,
	// so retrying the enqueue call itself is safe.
	Enqueue(ctx context.Context, op *core.Operation) error

	// Claim atomically selects up to batchSize claimable operations and sets
	// their lock timestamp. Returns ErrClaimConflict when another worker's
	// concurrent claim won; callers should treat that as an empty batch and
	// re-poll.
	Claim(ctx context.Context, batchSize int) ([]*core.Operation, error)

	// Complete marks an operation done. claimedAt must be the lock timestamp
	// the worker received from Claim; a mismatch means another worker
	// reclaimed the operation and returns ErrLockContention.
	Complete(ctx context.Context, operationID string, claimedAt time.Time) error

	// Release unlocks an operation early after a graceful failure, recording
	// the reason, incrementing the failure count, and delaying the next claim
	// by the given backoff.
	Release(ctx context.Context, operationID, reason string, delay time.Duration) error

	// ToPoison moves an operation to the poison queue with a failure reason.
	ToPoison(ctx context.Context, operationID, reason string) error

	// CancelByContent marks every outstanding operation for a pipeline as
	// cancelled and returns how many were affected.
	CancelByContent(ctx context.Context, contentID string) (int, error)

	// GetOperation retrieves an operation by id, checking the live queue
	// first and the poison queue second.
	// Returns ErrNotFound if the operation doesn't exist in either.
	GetOperation(ctx context.Context, operationID string) (*core.Operation, error)

	// PoisonedByContent returns the poisoned operations for a pipeline.
	PoisonedByContent(ctx context.Context, contentID string) ([]*core.Operation, error)

	// Poisoned lists all operations in the poison queue.
	Poisoned(ctx context.Context) ([]*core.Operation, error)

	// Close closes the queue and releases resources.
	Close() error
}

// CacheMode controls which half of the embedding cache contract is active.
type CacheMode int

const (
	// CacheModeReadWrite serves lookups and accepts writes.
	CacheModeReadWrite CacheMode = iota
	// CacheModeReadOnly serves lookups; Store calls are no-ops.
	CacheModeReadOnly
	// CacheModeWriteOnly accepts writes; TryGet always misses.
	CacheModeWriteOnly
)

// EmbeddingCache is a content-addressed store of embedding vectors keyed by
// (text, model, provider). Entries are immutable once written; Store replaces
// wholesale. Implementations must tolerate concurrent readers and writers.
type EmbeddingCache interface {
	// TryGet returns the cached entry for a key, or nil on a miss. A cache in
	// write-only mode always returns nil.
	TryGet(ctx context.Context, key core.CacheKey) (*core.CachedEmbedding, error)

	// Store writes an entry for a key. A cache in read-only mode ignores the
	// call.
	Store(ctx context.Context, key core.CacheKey, entry *core.CachedEmbedding) error

	// Mode reports the configured cache mode.
	Mode() CacheMode

	// Close closes the cache and releases resources.
	Close() error
}

// VectorStore persists searchable memory records per index.
type VectorStore interface {
	// Upsert writes memory records into an index, keyed by record id.
	Upsert(ctx context.Context, index string, records ...*core.MemoryRecord) error

	// Query finds records similar to the given vector.
	// Returns records with similarity >= minScore, up to limit results,
	// ordered by similarity score (highest first).
	Query(ctx context.Context, index string, vector []float32, minScore float32, limit int) ([]*core.SearchResult, error)

	// Delete removes records by id. Missing ids are ignored.
	Delete(ctx context.Context, index string, ids ...string) error

	// DeleteByPipeline removes every record saved by the given pipeline.
	DeleteByPipeline(ctx context.Context, index, pipelineID string) error

	// DeleteIndex drops an entire index.
	DeleteIndex(ctx context.Context, index string) error

	// Close closes the store and releases resources.
	Close() error
}
