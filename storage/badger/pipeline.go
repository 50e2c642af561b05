package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
)

// PipelineRepository implements storage.PipelineRepository for BadgerDB.
type PipelineRepository struct {
	backend *Backend
}

var _ storage.PipelineRepository = (*PipelineRepository)(nil)

// NewPipelineRepository creates a new PipelineRepository.
func NewPipelineRepository(backend *Backend) *PipelineRepository {
	return &PipelineRepository{backend: backend}
}

// SavePipeline upserts a pipeline record keyed by its id.
func (r *PipelineRepository) SavePipeline(ctx context.Context, p *core.Pipeline) error {
	if err := core.ValidatePipeline(p); err != nil {
		return err
	}
	value, err := storage.MarshalPipeline(p)
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makePipelineKey(p.ID), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetPipeline retrieves a pipeline by id.
func (r *PipelineRepository) GetPipeline(ctx context.Context, id string) (*core.Pipeline, error) {
	var result *core.Pipeline
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makePipelineKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalPipeline(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// DeletePipeline removes a pipeline record.
func (r *PipelineRepository) DeletePipeline(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makePipelineKey(id)
		if _, err := tx.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Close releases repository resources.
func (r *PipelineRepository) Close() error {
	return nil
}
