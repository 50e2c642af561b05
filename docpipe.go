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


package docpipe

import (
	"context"
	"log/slog"

	"github.com/poiesic/docpipe/ai"
	"github.com/poiesic/docpipe/ai/openai"
	"github.com/poiesic/docpipe/chunker"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/extract"
	"github.com/poiesic/docpipe/pipeline"
	"github.com/poiesic/docpipe/pipeline/handlers"
	"github.com/poiesic/docpipe/search"
	"github.com/poiesic/docpipe/storage"
	"github.com/poiesic/docpipe/storage/badger"
)

// Service wires the storage backends, AI provider, handler chain, and
// orchestrator into one ingestion engine backed by a single database
// directory.
type Service struct {
	backend      *badger.Backend
	pipelines    storage.PipelineRepository
	content      storage.ContentRepository
	queue        storage.OperationQueue
	cache        storage.EmbeddingCache
	vectors      storage.VectorStore
	provider     ai.AIProvider
	orchestrator *pipeline.Orchestrator
	worker       *pipeline.Worker
	logger       *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig       *ai.Config
	pipelineConfig *pipeline.Config
	chunkerOptions chunker.Options
	cacheMode      storage.CacheMode
	decoders       *extract.Registry
	provider       ai.AIProvider
	inMemory       bool
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(cfg *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.aiConfig = cfg
	}
}

// WithPipelineConfig sets the queue and worker tuning knobs.
func WithPipelineConfig(cfg *pipeline.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.pipelineConfig = cfg
	}
}

// WithChunkerOptions sets the partitioning bounds.
func WithChunkerOptions(opts chunker.Options) ServiceOption {
	return func(o *serviceOptions) {
		o.chunkerOptions = opts
	}
}

// WithCacheMode sets the embedding cache mode.
// Default is storage.CacheModeReadWrite.
func WithCacheMode(mode storage.CacheMode) ServiceOption {
	return func(o *serviceOptions) {
		o.cacheMode = mode
	}
}

// WithDecoders replaces the built-in decoder registry, letting callers add
// decoders for further content types.
func WithDecoders(registry *extract.Registry) ServiceOption {
	return func(o *serviceOptions) {
		o.decoders = registry
	}
}

// WithAIProvider injects a pre-built AI provider instead of constructing the
// OpenAI-compatible one. Used by tests to run without an embedding service.
func WithAIProvider(provider ai.AIProvider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithInMemory runs the service against an in-memory database. State does
// not survive a restart; intended for tests and experiments.
func WithInMemory() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// NewService opens the database at filePath and assembles the ingestion
// engine around it.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig:       ai.DefaultConfig(),
		pipelineConfig: pipeline.DefaultConfig(),
		chunkerOptions: chunker.DefaultOptions(),
		cacheMode:      storage.CacheModeReadWrite,
		decoders:       extract.NewRegistry(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if err := options.pipelineConfig.Validate(); err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	queue, err := badger.NewOperationQueue(backend,
		badger.WithLockDuration(options.pipelineConfig.LockDuration),
		badger.WithPoisonSuffix(options.pipelineConfig.PoisonQueueSuffix),
	)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	pipelines := badger.NewPipelineRepository(backend)
	content := badger.NewContentRepository(backend)
	cache := badger.NewEmbeddingCache(backend, options.cacheMode)
	vectors := badger.NewVectorStore(backend)
	embedder := ai.NewCachedEmbedder(provider.Embedder(), cache)

	registry, err := buildRegistry(content, vectors, options.decoders, provider.TokenCounter(), embedder, options.chunkerOptions)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	orchestrator, err := pipeline.NewOrchestrator(pipelines, content, queue, registry,
		pipeline.WithConfig(options.pipelineConfig))
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	worker, err := pipeline.NewWorker(queue, orchestrator)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	return &Service{
		backend:      backend,
		pipelines:    pipelines,
		content:      content,
		queue:        queue,
		cache:        cache,
		vectors:      vectors,
		provider:     provider,
		orchestrator: orchestrator,
		worker:       worker,
		logger:       slog.Default(),
	}, nil
}

func buildRegistry(
	content storage.ContentRepository,
	vectors storage.VectorStore,
	decoders *extract.Registry,
	counter ai.TokenCounter,
	embedder ai.Embedder,
	chunkOpts chunker.Options,
) (*pipeline.Registry, error) {
	extractH, err := handlers.NewExtract(content, decoders)
	if err != nil {
		return nil, err
	}
	partitionH, err := handlers.NewPartition(content, counter, chunkOpts)
	if err != nil {
		return nil, err
	}
	embedH, err := handlers.NewGenEmbeddings(content, embedder)
	if err != nil {
		return nil, err
	}
	saveH, err := handlers.NewSaveRecords(content, vectors)
	if err != nil {
		return nil, err
	}
	deleteDocH, err := handlers.NewDeleteDocument(content, vectors)
	if err != nil {
		return nil, err
	}
	deleteIdxH, err := handlers.NewDeleteIndex(vectors)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRegistry(extractH, partitionH, embedH, saveH, deleteDocH, deleteIdxH)
}

// UploadFile describes one file of an upload.
type UploadFile struct {
	Name     string
	MimeType string
	Content  []byte
}

// Upload stores the given files and schedules their ingestion through the
// default step chain. Returns the pipeline id, which doubles as the document
// id for status polling and deletion.
func (s *Service) Upload(ctx context.Context, index string, files []UploadFile, tags map[string][]string) (string, error) {
	fileRecords := make([]core.FileRecord, len(files))
	for i, f := range files {
		fileRecords[i] = core.FileRecord{
			Name:      f.Name,
			MimeType:  f.MimeType,
			SizeBytes: int64(len(f.Content)),
		}
	}

	p := core.NewPipeline(index, core.DefaultSteps(), fileRecords...)
	p.Tags = tags

	for _, f := range files {
		record := &core.ContentRecord{
			ID:       core.ContentKey(p.ID, f.Name),
			Content:  string(f.Content),
			MimeType: f.MimeType,
			ByteSize: int64(len(f.Content)),
			Tags:     tags,
		}
		if err := s.content.UpsertContent(ctx, record); err != nil {
			return "", err
		}
	}

	return s.orchestrator.Schedule(ctx, p)
}

// DeleteDocument schedules the cleanup pipeline for a document. The delete
// pipeline reuses the document's pipeline id so its handlers can find
// everything the ingestion wrote.
func (s *Service) DeleteDocument(ctx context.Context, index, documentID string) error {
	p := core.NewPipeline(index, []string{core.StepDeleteDocument})
	p.ID = documentID
	_, err := s.orchestrator.Schedule(ctx, p)
	return err
}

// DeleteIndex schedules a pipeline that drops an entire index.
func (s *Service) DeleteIndex(ctx context.Context, index string) (string, error) {
	p := core.NewPipeline(index, []string{core.StepDeleteIndex})
	return s.orchestrator.Schedule(ctx, p)
}

// IsReady reports whether a document finished every ingestion step.
func (s *Service) IsReady(ctx context.Context, documentID string) (bool, error) {
	return s.orchestrator.IsReady(ctx, documentID)
}

// Status returns the pollable processing state of a document.
func (s *Service) Status(ctx context.Context, documentID string) (*core.PipelineStatus, error) {
	return s.orchestrator.Status(ctx, documentID)
}

// Cancel stops a document's pipeline and returns how many queued operations
// were withdrawn.
func (s *Service) Cancel(ctx context.Context, documentID string) (int, error) {
	return s.orchestrator.Cancel(ctx, documentID)
}

// Poisoned lists operations parked in the poison queue.
func (s *Service) Poisoned(ctx context.Context) ([]*core.Operation, error) {
	return s.queue.Poisoned(ctx)
}

// Run polls the queue and executes operations until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	return s.worker.Run(ctx)
}

// Drain synchronously processes the queue until it is empty.
func (s *Service) Drain(ctx context.Context) error {
	return s.worker.Drain(ctx)
}

// NewSearcher creates a searcher over the service's vector store. Queries go
// through the embedding cache, so repeated query text does not re-pay the
// provider.
func (s *Service) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(s.vectors, ai.NewCachedEmbedder(s.provider.Embedder(), s.cache), opts...)
}

// Orchestrator exposes the orchestrator for callers scheduling custom step
// lists.
func (s *Service) Orchestrator() *pipeline.Orchestrator {
	return s.orchestrator
}

// Close shuts down the worker pool, the AI provider, and the database.
func (s *Service) Close() error {
	s.worker.Release()

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
