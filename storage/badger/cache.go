package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
)

// EmbeddingCache implements storage.EmbeddingCache for BadgerDB. Entries are
// content-addressed, so a write conflict means another worker stored the same
// vector first and is treated as success.
type EmbeddingCache struct {
	backend *Backend
	mode    storage.CacheMode
}

var _ storage.EmbeddingCache = (*EmbeddingCache)(nil)

// NewEmbeddingCache creates a new EmbeddingCache with the given mode.
func NewEmbeddingCache(backend *Backend, mode storage.CacheMode) *EmbeddingCache {
	return &EmbeddingCache{backend: backend, mode: mode}
}

// TryGet looks up a cached embedding. Returns nil, nil on a miss or when the
// cache is write-only.
func (c *EmbeddingCache) TryGet(ctx context.Context, key core.CacheKey) (*core.CachedEmbedding, error) {
	if c.mode == storage.CacheModeWriteOnly {
		return nil, nil
	}
	var result *core.CachedEmbedding
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalCachedEmbedding(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// Store writes an embedding to the cache. A no-op when the cache is
// read-only.
func (c *EmbeddingCache) Store(ctx context.Context, key core.CacheKey, entry *core.CachedEmbedding) error {
	if c.mode == storage.CacheModeReadOnly {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	value, err := storage.MarshalCachedEmbedding(entry)
	if err != nil {
		return err
	}
	err = c.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCacheKey(key), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if errors.Is(err, badger.ErrConflict) {
		// Same key, same content: the other writer won.
		return nil
	}
	return err
}

// Mode reports the cache's configured mode.
func (c *EmbeddingCache) Mode() storage.CacheMode {
	return c.mode
}

// Close releases cache resources.
func (c *EmbeddingCache) Close() error {
	return nil
}
