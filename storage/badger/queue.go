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
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
)

const (
	// DefaultLockDuration is how long a claim holds an operation before a
	// crashed worker's lock expires and the operation becomes re-claimable.
	DefaultLockDuration = 60 * time.Second

	// DefaultPoisonSuffix names the poison queue relative to the live queue.
	DefaultPoisonSuffix = "poison"
)

// OperationQueue implements storage.OperationQueue for BadgerDB.
//
// Claim atomicity relies on BadgerDB's serializable snapshot isolation: the
// claim transaction reads every candidate operation and rewrites the selected
// ones, so two overlapping claims conflict and exactly one commits. The loser
// surfaces storage.ErrClaimConflict and re-polls.
type OperationQueue struct {
	backend      *Backend
	lockDuration time.Duration
	poisonSuffix string
	logger       *slog.Logger
	now          func() time.Time
}

var _ storage.OperationQueue = (*OperationQueue)(nil)

// QueueOption configures an OperationQueue.
type QueueOption func(*OperationQueue) error

// WithLockDuration sets the claim lock duration. Too short causes duplicate
// processing; too long delays crash recovery.
func WithLockDuration(d time.Duration) QueueOption {
	return func(q *OperationQueue) error {
		if d <= 0 {
			return errors.New("lock duration must be positive")
		}
		q.lockDuration = d
		return nil
	}
}

// WithPoisonSuffix sets the poison queue name suffix.
func WithPoisonSuffix(suffix string) QueueOption {
	return func(q *OperationQueue) error {
		if err := core.ValidatePoisonSuffix(suffix); err != nil {
			return err
		}
		q.poisonSuffix = suffix
		return nil
	}
}

// WithClock overrides the queue's time source. Intended for tests exercising
// lock expiry without waiting on wall-clock time.
func WithClock(now func() time.Time) QueueOption {
	return func(q *OperationQueue) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		q.now = now
		return nil
	}
}

// NewOperationQueue creates a new OperationQueue.
func NewOperationQueue(backend *Backend, opts ...QueueOption) (*OperationQueue, error) {
	q := &OperationQueue{
		backend:      backend,
		lockDuration: DefaultLockDuration,
		poisonSuffix: DefaultPoisonSuffix,
		logger:       slog.Default().With("component", "operation-queue"),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if err := opt(q); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Enqueue durably writes an operation, keyed by id so retrying the enqueue
// call itself is idempotent.
func (q *OperationQueue) Enqueue(ctx context.Context, op *core.Operation) error {
	if err := core.ValidateOperation(op); err != nil {
		return err
	}
	value, err := storage.MarshalOperation(op)
	if err != nil {
		return err
	}
	return q.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeOperationKey(op.ID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Claim atomically selects up to batchSize claimable operations and locks
// them by setting LastAttempt. The selection and the lock write happen in one
// transaction, so a claimed operation is never handed to two workers.
func (q *OperationQueue) Claim(ctx context.Context, batchSize int) ([]*core.Operation, error) {
	if batchSize <= 0 {
		return nil, nil
	}
	now := q.now()

	var claimed []*core.Operation
	err := q.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(operationPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid() && len(claimed) < batchSize; iter.Next() {
			var op *core.Operation
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				op, unmarshalErr = storage.UnmarshalOperation(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			if !op.Claimable(now, q.lockDuration) {
				continue
			}

			attempt := now
			op.LastAttempt = &attempt
			op.NotBefore = nil

			value, err := storage.MarshalOperation(op)
			if err != nil {
				return err
			}
			if err := tx.Set(makeOperationKey(op.ID), value); err != nil {
				return err
			}
			claimed = append(claimed, op)
		}

		if len(claimed) == 0 {
			return nil
		}
		iter.Close()
		return tx.Commit()
	}, true)

	if err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return nil, storage.ErrClaimConflict
		}
		return nil, err
	}
	return claimed, nil
}

// Complete marks an operation done. claimedAt must match the stored lock
// timestamp; a mismatch means another worker reclaimed the operation after
// our lock expired.
func (q *OperationQueue) Complete(ctx context.Context, operationID string, claimedAt time.Time) error {
	return q.mutateOperation(operationID, func(op *core.Operation) error {
		if op.Complete {
			return storage.ErrOperationComplete
		}
		if op.LastAttempt == nil || !op.LastAttempt.Equal(claimedAt) {
			return storage.ErrLockContention
		}
		op.Complete = true
		return nil
	})
}

// Release unlocks an operation early after a graceful failure. The failure
// reason is recorded, the failure count incremented, and the next claim
// delayed by the given backoff.
func (q *OperationQueue) Release(ctx context.Context, operationID, reason string, delay time.Duration) error {
	return q.mutateOperation(operationID, func(op *core.Operation) error {
		if op.Complete {
			return storage.ErrOperationComplete
		}
		op.FailureCount++
		op.LastFailureReason = reason
		op.LastAttempt = nil
		op.NotBefore = nil
		if delay > 0 {
			notBefore := q.now().Add(delay)
			op.NotBefore = &notBefore
		}
		return nil
	})
}

// ToPoison moves an operation from the live queue to the poison queue.
func (q *OperationQueue) ToPoison(ctx context.Context, operationID, reason string) error {
	return q.backend.WithTx(func(tx *badger.Txn) error {
		key := makeOperationKey(operationID)
		op, err := readOperation(tx, key)
		if err != nil {
			return err
		}
		if op == nil {
			return storage.ErrNotFound
		}

		op.LastFailureReason = reason
		op.LastAttempt = nil
		op.NotBefore = nil

		value, err := storage.MarshalOperation(op)
		if err != nil {
			return err
		}
		if err := tx.Set(makePoisonKey(q.poisonSuffix, op.ID), value); err != nil {
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		q.logger.Warn("operation moved to poison queue",
			"operation", op.ID, "content", op.ContentID, "reason", reason)
		return nil
	}, true)
}

// CancelByContent marks every outstanding operation for a pipeline as
// cancelled and returns how many were affected.
func (q *OperationQueue) CancelByContent(ctx context.Context, contentID string) (int, error) {
	cancelled := 0
	err := q.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(operationPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		type update struct {
			key   []byte
			value []byte
		}
		var updates []update

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var op *core.Operation
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				op, unmarshalErr = storage.UnmarshalOperation(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			if op.ContentID != contentID || op.Complete || op.Cancelled {
				continue
			}
			op.Cancelled = true
			value, err := storage.MarshalOperation(op)
			if err != nil {
				return err
			}
			updates = append(updates, update{key: makeOperationKey(op.ID), value: value})
		}

		for _, u := range updates {
			if err := tx.Set(u.key, u.value); err != nil {
				return err
			}
		}
		if len(updates) == 0 {
			return nil
		}
		cancelled = len(updates)
		iter.Close()
		return tx.Commit()
	}, true)
	return cancelled, err
}

// GetOperation retrieves an operation by id, checking the live queue first
// and the poison queue second.
func (q *OperationQueue) GetOperation(ctx context.Context, operationID string) (*core.Operation, error) {
	var result *core.Operation
	err := q.backend.WithTx(func(tx *badger.Txn) error {
		op, err := readOperation(tx, makeOperationKey(operationID))
		if err != nil {
			return err
		}
		if op == nil {
			op, err = readOperation(tx, makePoisonKey(q.poisonSuffix, operationID))
			if err != nil {
				return err
			}
		}
		if op == nil {
			return storage.ErrNotFound
		}
		result = op
		return nil
	}, false)
	return result, err
}

// PoisonedByContent returns the poisoned operations for a pipeline.
func (q *OperationQueue) PoisonedByContent(ctx context.Context, contentID string) ([]*core.Operation, error) {
	all, err := q.Poisoned(ctx)
	if err != nil {
		return nil, err
	}
	var matched []*core.Operation
	for _, op := range all {
		if op.ContentID == contentID {
			matched = append(matched, op)
		}
	}
	return matched, nil
}

// Poisoned lists all operations in the poison queue.
func (q *OperationQueue) Poisoned(ctx context.Context) ([]*core.Operation, error) {
	var result []*core.Operation
	err := q.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = poisonQueuePrefix(q.poisonSuffix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var op *core.Operation
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				op, unmarshalErr = storage.UnmarshalOperation(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			result = append(result, op)
		}
		return nil
	}, false)
	return result, err
}

// Close releases queue resources.
func (q *OperationQueue) Close() error {
	return nil
}

// mutateOperation applies fn to a live operation and persists the result.
func (q *OperationQueue) mutateOperation(operationID string, fn func(op *core.Operation) error) error {
	return q.backend.WithTx(func(tx *badger.Txn) error {
		key := makeOperationKey(operationID)
		op, err := readOperation(tx, key)
		if err != nil {
			return err
		}
		if op == nil {
			return storage.ErrNotFound
		}
		if err := fn(op); err != nil {
			return err
		}
		value, err := storage.MarshalOperation(op)
		if err != nil {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// readOperation reads an operation from the transaction.
// Returns nil, nil when the key does not exist.
func readOperation(tx *badger.Txn, key []byte) (*core.Operation, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	var op *core.Operation
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		op, unmarshalErr = storage.UnmarshalOperation(val)
		return unmarshalErr
	})
	return op, err
}
