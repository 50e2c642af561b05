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


package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
)

// Orchestrator drives pipelines through their step lists. It owns all
// pipeline mutations: handlers report outcomes, the orchestrator persists
// progress and decides between advance, retry, and poison.
type Orchestrator struct {
	pipelines storage.PipelineRepository
	content   storage.ContentRepository
	queue     storage.OperationQueue
	registry  *Registry
	config    *Config
	logger    *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator) error

// WithConfig overrides the default queue configuration.
func WithConfig(cfg *Config) OrchestratorOption {
	return func(o *Orchestrator) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator over the given stores and handler
// registry.
func NewOrchestrator(
	pipelines storage.PipelineRepository,
	content storage.ContentRepository,
	queue storage.OperationQueue,
	registry *Registry,
	opts ...OrchestratorOption,
) (*Orchestrator, error) {
	if pipelines == nil {
		return nil, ErrPipelineStoreRequired
	}
	if content == nil {
		return nil, ErrContentStoreRequired
	}
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	o := &Orchestrator{
		pipelines: pipelines,
		content:   content,
		queue:     queue,
		registry:  registry,
		config:    DefaultConfig(),
		logger:    slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Config returns the orchestrator's queue configuration.
func (o *Orchestrator) Config() *Config {
	return o.config
}

// Schedule validates a pipeline, persists it, and enqueues its first
// operation. Validation failures reject the pipeline before anything is
// written; a half-scheduled pipeline never exists.
func (o *Orchestrator) Schedule(ctx context.Context, p *core.Pipeline) (string, error) {
	if err := core.ValidatePipeline(p); err != nil {
		return "", err
	}
	for _, step := range p.Steps {
		if !o.registry.Knows(step) {
			return "", fmt.Errorf("%w: %w: %q", core.ErrInvalidPipeline, core.ErrUnknownStep, step)
		}
	}

	if err := o.pipelines.SavePipeline(ctx, p); err != nil {
		return "", err
	}
	if err := o.queue.Enqueue(ctx, core.NewOperation(p)); err != nil {
		return "", err
	}

	o.logger.Info("pipeline scheduled",
		"pipeline", p.ID, "index", p.Index, "steps", p.Steps, "files", len(p.Files))
	return p.ID, nil
}

// Execute runs one claimed operation to its outcome: invoke the current
// step's handler, then advance, retry, or poison. The operation must hold a
// live claim (non-nil LastAttempt).
func (o *Orchestrator) Execute(ctx context.Context, op *core.Operation) error {
	if op.LastAttempt == nil {
		return fmt.Errorf("%w: operation %s has no claim", core.ErrInvalidOperation, op.ID)
	}
	claimedAt := *op.LastAttempt
	logger := o.logger.With("operation", op.ID, "pipeline", op.ContentID)

	p, err := o.pipelines.GetPipeline(ctx, op.ContentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// The pipeline record is gone; nothing left to drive.
			logger.Warn("operation references missing pipeline")
			return o.queue.Complete(ctx, op.ID, claimedAt)
		}
		return err
	}

	if p.Cancelled || op.Cancelled {
		logger.Info("skipping cancelled operation")
		return o.queue.Complete(ctx, op.ID, claimedAt)
	}

	step, ok := p.NextStep()
	if !ok {
		// Pipeline already finished; a duplicate operation from a crash
		// recovery re-asserts readiness and retires.
		if err := o.markReady(ctx, p); err != nil {
			return err
		}
		return o.queue.Complete(ctx, op.ID, claimedAt)
	}

	handler, err := o.registry.Get(step)
	if err != nil {
		// Schedule validates step names, so this indicates a registry change
		// between schedule and execution.
		logger.Error("no handler for step", "step", step, "err", err)
		return o.queue.ToPoison(ctx, op.ID, err.Error())
	}

	outcome, invokeErr := o.invoke(ctx, handler, p)
	logger.Debug("handler finished", "step", step, "outcome", outcome.String(), "err", invokeErr)

	switch outcome {
	case Success:
		return o.advance(ctx, op, p, step, claimedAt)
	case PermanentFailure:
		reason := fmt.Sprintf("step %s: permanent failure: %v", step, invokeErr)
		logger.Warn("permanent failure, poisoning operation", "step", step, "err", invokeErr)
		return o.queue.ToPoison(ctx, op.ID, reason)
	default:
		return o.retry(ctx, op, step, invokeErr, logger)
	}
}

// invoke runs a handler, converting a panic into a transient failure so one
// bad document cannot take down the worker.
func (o *Orchestrator) invoke(ctx context.Context, handler Handler, p *core.Pipeline) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = TransientFailure
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Invoke(ctx, p)
}

// advance persists step completion and either enqueues the next operation or
// finishes the pipeline. The successor is made durable before the current
// operation is retired: a crash between the two leaves a duplicate operation,
// which idempotent handlers absorb, where the reverse order would strand the
// pipeline with remaining steps and nothing in the queue.
func (o *Orchestrator) advance(ctx context.Context, op *core.Operation, p *core.Pipeline, step string, claimedAt time.Time) error {
	if err := p.CompleteStep(step); err != nil {
		return err
	}
	if err := o.pipelines.SavePipeline(ctx, p); err != nil {
		return err
	}

	if !p.Complete() {
		if err := o.queue.Enqueue(ctx, core.NewOperation(p)); err != nil {
			// The current operation keeps its claim; a later reclaim retries
			// from the already-advanced pipeline state.
			return err
		}
	} else {
		if err := o.markReady(ctx, p); err != nil {
			return err
		}
		o.logger.Info("pipeline complete", "pipeline", p.ID, "index", p.Index)
	}

	if err := o.queue.Complete(ctx, op.ID, claimedAt); err != nil {
		if errors.Is(err, storage.ErrLockContention) {
			// Two workers believed they held the lock. The atomic claim
			// should make this impossible; treat it as fatal to the
			// operation.
			o.logger.Error("lock contention anomaly", "operation", op.ID, "step", step)
			return o.queue.ToPoison(ctx, op.ID, "lock contention anomaly at step "+step)
		}
		return err
	}
	return nil
}

// markReady flips every uploaded file's content record to ready. Missing
// records are fine: delete pipelines have no uploads left.
func (o *Orchestrator) markReady(ctx context.Context, p *core.Pipeline) error {
	for _, file := range p.Files {
		if err := o.content.SetReady(ctx, core.ContentKey(p.ID, file.Name), true); err != nil &&
			!errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}
	return nil
}

// retry releases the operation with backoff, or poisons it once the retry
// budget is spent. An operation that failed maxRetriesBeforePoison times
// moves to poison on the next failure, never earlier.
func (o *Orchestrator) retry(ctx context.Context, op *core.Operation, step string, invokeErr error, logger *slog.Logger) error {
	reason := fmt.Sprintf("step %s: %v", step, invokeErr)

	if op.FailureCount >= o.config.MaxRetriesBeforePoison {
		logger.Warn("retry budget exhausted, poisoning operation",
			"step", step, "failures", op.FailureCount, "err", invokeErr)
		return o.queue.ToPoison(ctx, op.ID, reason)
	}

	attempt := op.FailureCount + 1
	delay := DelayForAttempt(o.config.RetryBaseDelay, o.config.RetryMaxDelay, attempt)
	logger.Info("transient failure, releasing for retry",
		"step", step, "attempt", attempt, "delay", delay, "err", invokeErr)
	return o.queue.Release(ctx, op.ID, reason, delay)
}

// Cancel stops a pipeline: the record is marked cancelled and outstanding
// operations are withdrawn from the queue. Steps already completed are not
// undone.
func (o *Orchestrator) Cancel(ctx context.Context, pipelineID string) (int, error) {
	p, err := o.pipelines.GetPipeline(ctx, pipelineID)
	if err != nil {
		return 0, err
	}
	p.Cancelled = true
	if err := o.pipelines.SavePipeline(ctx, p); err != nil {
		return 0, err
	}
	cancelled, err := o.queue.CancelByContent(ctx, pipelineID)
	if err != nil {
		return 0, err
	}
	o.logger.Info("pipeline cancelled", "pipeline", pipelineID, "operations", cancelled)
	return cancelled, nil
}

// IsReady reports whether a document finished every step. It is false while
// the pipeline is processing, cancelled, or poisoned.
func (o *Orchestrator) IsReady(ctx context.Context, pipelineID string) (bool, error) {
	p, err := o.pipelines.GetPipeline(ctx, pipelineID)
	if err != nil {
		return false, err
	}
	return p.Complete() && !p.Cancelled, nil
}

// Status returns the pollable view of a pipeline, distinguishing "still
// processing" from "permanently failed" via the poison queue.
func (o *Orchestrator) Status(ctx context.Context, pipelineID string) (*core.PipelineStatus, error) {
	p, err := o.pipelines.GetPipeline(ctx, pipelineID)
	if err != nil {
		return nil, err
	}
	poisoned, err := o.queue.PoisonedByContent(ctx, pipelineID)
	if err != nil {
		return nil, err
	}

	status := &core.PipelineStatus{
		PipelineID:     p.ID,
		Index:          p.Index,
		Completed:      p.Complete() && !p.Cancelled,
		Failed:         len(poisoned) > 0,
		CompletedSteps: p.CompletedSteps,
		RemainingSteps: p.RemainingSteps,
	}
	if len(poisoned) > 0 {
		status.LastFailureReason = poisoned[len(poisoned)-1].LastFailureReason
	}
	return status, nil
}
