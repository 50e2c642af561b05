package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docpipe/storage"
)

// Worker polls the operation queue and executes claimed operations on a
// bounded pool. Several workers may run against the same queue, on the same
// host or different ones; the claim transaction keeps them from colliding.
type Worker struct {
	queue        storage.OperationQueue
	orchestrator *Orchestrator
	pool         *ants.Pool
	pollDelay    time.Duration
	batchSize    int
	logger       *slog.Logger

	mu      sync.Mutex
	stopped bool
}

// NewWorker creates a worker with a pool sized from the orchestrator's
// configuration.
func NewWorker(queue storage.OperationQueue, orchestrator *Orchestrator) (*Worker, error) {
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if orchestrator == nil {
		return nil, ErrRegistryRequired
	}
	cfg := orchestrator.Config()

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, err
	}

	return &Worker{
		queue:        queue,
		orchestrator: orchestrator,
		pool:         pool,
		pollDelay:    cfg.PollDelay,
		batchSize:    cfg.FetchBatchSize,
		logger:       slog.Default().With("component", "pipeline-worker"),
	}, nil
}

// Run polls the queue until the context is cancelled. Claimed operations run
// concurrently on the pool; Run waits for in-flight operations before
// returning.
func (w *Worker) Run(ctx context.Context) error {
	if w.isStopped() {
		return ErrWorkerStopped
	}
	ticker := time.NewTicker(w.pollDelay)
	defer ticker.Stop()

	var inflight sync.WaitGroup
	defer inflight.Wait()

	w.logger.Info("worker started", "pool", w.pool.Cap(), "pollDelay", w.pollDelay)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return ctx.Err()
		case <-ticker.C:
		}

		ops, err := w.queue.Claim(ctx, w.batchSize)
		if err != nil {
			if errors.Is(err, storage.ErrClaimConflict) {
				// Another worker won the batch; re-poll.
				continue
			}
			w.logger.Error("claim failed", "err", err)
			continue
		}

		for _, op := range ops {
			op := op
			inflight.Add(1)
			submitErr := w.pool.Submit(func() {
				defer inflight.Done()
				if err := w.orchestrator.Execute(ctx, op); err != nil {
					w.logger.Error("operation execution failed",
						"operation", op.ID, "pipeline", op.ContentID, "err", err)
				}
			})
			if submitErr != nil {
				inflight.Done()
				w.logger.Error("failed to submit operation", "operation", op.ID, "err", submitErr)
			}
		}
	}
}

// Drain processes the queue until it is empty, synchronously. Intended for
// tests and one-shot CLI runs where a background poll loop is overkill.
func (w *Worker) Drain(ctx context.Context) error {
	if w.isStopped() {
		return ErrWorkerStopped
	}
	for {
		ops, err := w.queue.Claim(ctx, w.batchSize)
		if err != nil {
			if errors.Is(err, storage.ErrClaimConflict) {
				continue
			}
			return err
		}
		if len(ops) == 0 {
			return nil
		}
		for _, op := range ops {
			if err := w.orchestrator.Execute(ctx, op); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

// Release shuts down the worker pool. Run and Drain return ErrWorkerStopped
// afterwards.
func (w *Worker) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	w.pool.Release()
}
