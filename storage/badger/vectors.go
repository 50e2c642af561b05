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


package badger

import (
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
)

// VectorStore implements storage.VectorStore for BadgerDB using exhaustive
// scan with dot-product scoring. Records are keyed by index and id, with a
// secondary key per pipeline so a document's records can be removed without
// scanning the whole index.
type VectorStore struct {
	backend *Backend
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a new VectorStore.
func NewVectorStore(backend *Backend) *VectorStore {
	return &VectorStore{backend: backend}
}

// Upsert writes memory records into an index.
func (s *VectorStore) Upsert(ctx context.Context, index string, records ...*core.MemoryRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			value, err := storage.MarshalMemoryRecord(record)
			if err != nil {
				return err
			}
			if err := tx.Set(makeMemoryRecordKey(index, record.ID), value); err != nil {
				return err
			}
			if record.PipelineID != "" {
				key := makeMemoryPipelineKey(index, record.PipelineID, record.ID)
				if err := tx.Set(key, []byte(record.ID)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
}

// Query scans an index for records similar to the given vector, scored by dot
// product. Results below minScore are dropped; at most limit results are
// returned, best first. An unknown index yields an empty result, not an
// error.
func (s *VectorStore) Query(ctx context.Context, index string, vector []float32, minScore float32, limit int) ([]*core.SearchResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	var results []*core.SearchResult
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = memoryIndexPrefix(index)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.MemoryRecord
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				record, unmarshalErr = storage.UnmarshalMemoryRecord(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			score := dotProduct(vector, record.Vector)
			if score < minScore {
				continue
			}
			results = append(results, &core.SearchResult{Record: record, Score: score})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes records by id from an index. Missing ids are ignored.
func (s *VectorStore) Delete(ctx context.Context, index string, ids ...string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			record, err := readMemoryRecord(tx, makeMemoryRecordKey(index, id))
			if err != nil {
				return err
			}
			if record == nil {
				continue
			}
			if err := tx.Delete(makeMemoryRecordKey(index, id)); err != nil {
				return err
			}
			if record.PipelineID != "" {
				if err := tx.Delete(makeMemoryPipelineKey(index, record.PipelineID, id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteByPipeline removes every record a pipeline saved into an index,
// using the secondary pipeline key instead of a full index scan.
func (s *VectorStore) DeleteByPipeline(ctx context.Context, index, pipelineID string) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = memoryPipelinePrefix(index, pipelineID)
		iter := tx.NewIterator(opts)

		var recordIDs []string
		var indexKeys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var id string
			err := iter.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			})
			if err != nil {
				iter.Close()
				return err
			}
			recordIDs = append(recordIDs, id)
			indexKeys = append(indexKeys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, id := range recordIDs {
			if err := tx.Delete(makeMemoryRecordKey(index, id)); err != nil {
				return err
			}
		}
		for _, key := range indexKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteIndex removes an entire index and its pipeline keys.
func (s *VectorStore) DeleteIndex(ctx context.Context, index string) error {
	prefixes := [][]byte{
		memoryIndexPrefix(index),
		[]byte(memoryPipelineIndex + ":" + index + ":"),
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		var keys [][]byte
		for _, prefix := range prefixes {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = false
			iter := tx.NewIterator(opts)
			for iter.Rewind(); iter.Valid(); iter.Next() {
				keys = append(keys, iter.Item().KeyCopy(nil))
			}
			iter.Close()
		}
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Close releases store resources.
func (s *VectorStore) Close() error {
	return nil
}

// readMemoryRecord reads a memory record from the transaction.
// Returns nil, nil when the key does not exist.
func readMemoryRecord(tx *badger.Txn, key []byte) (*core.MemoryRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var record *core.MemoryRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalMemoryRecord(val)
		return unmarshalErr
	})
	return record, err
}

// dotProduct computes the inner product of two vectors. Mismatched lengths
// score zero so a model change cannot surface bogus matches.
func dotProduct(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
