package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
)

// ContentRepository implements storage.ContentRepository for BadgerDB.
type ContentRepository struct {
	backend *Backend
}

var _ storage.ContentRepository = (*ContentRepository)(nil)

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(backend *Backend) *ContentRepository {
	return &ContentRepository{backend: backend}
}

// UpsertContent writes a content record keyed by its id.
func (r *ContentRepository) UpsertContent(ctx context.Context, record *core.ContentRecord) error {
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	value, err := storage.MarshalContentRecord(record)
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeContentKey(record.ID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetContent retrieves a content record by id.
func (r *ContentRepository) GetContent(ctx context.Context, id string) (*core.ContentRecord, error) {
	var result *core.ContentRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readContentRecord(tx, makeContentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// DeleteContent removes content records by id. Missing ids are ignored.
func (r *ContentRepository) DeleteContent(ctx context.Context, ids ...string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeContentKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteContentByPrefix removes every content record whose id starts with the
// given prefix.
func (r *ContentRepository) DeleteContentByPrefix(ctx context.Context, prefix string) error {
	keyPrefix := makeContentKey(prefix)
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPrefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// SetReady flips the externally observable ingestion-complete flag.
func (r *ContentRepository) SetReady(ctx context.Context, id string, ready bool) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeContentKey(id)
		record, err := readContentRecord(tx, key)
		if err != nil {
			return err
		}
		if record == nil {
			return storage.ErrNotFound
		}
		record.Ready = ready
		record.UpdatedAt = time.Now().UTC()

		value, err := storage.MarshalContentRecord(record)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Close releases repository resources.
func (r *ContentRepository) Close() error {
	return nil
}

// readContentRecord reads a content record from the transaction.
// Returns nil, nil when the key does not exist.
func readContentRecord(tx *badger.Txn, key []byte) (*core.ContentRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var record *core.ContentRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalContentRecord(val)
		return unmarshalErr
	})
	return record, err
}
