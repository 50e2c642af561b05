package handlers

import (
	"context"
	"log/slog"

	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/pipeline"
	"github.com/poiesic/docpipe/storage"
)

// DeleteDocument removes everything a document's ingestion produced: its
// memory records in the vector store and its content-store entries (source
// files and artifacts share the pipeline id prefix). Absence counts as done,
// so replays of the step are no-ops.
type DeleteDocument struct {
	content storage.ContentRepository
	vectors storage.VectorStore
	logger  *slog.Logger
}

var _ pipeline.Handler = (*DeleteDocument)(nil)

// NewDeleteDocument creates the delete_document step handler.
func NewDeleteDocument(content storage.ContentRepository, vectors storage.VectorStore) (*DeleteDocument, error) {
	if content == nil {
		return nil, ErrContentStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	return &DeleteDocument{
		content: content,
		vectors: vectors,
		logger:  slog.Default().With("handler", core.StepDeleteDocument),
	}, nil
}

// StepName returns the stable step name.
func (h *DeleteDocument) StepName() string {
	return core.StepDeleteDocument
}

// Invoke deletes the document's records and artifacts. A delete pipeline
// reuses the original pipeline's id, so the prefix delete covers everything
// the ingestion wrote.
func (h *DeleteDocument) Invoke(ctx context.Context, p *core.Pipeline) (pipeline.Outcome, error) {
	if err := h.vectors.DeleteByPipeline(ctx, p.Index, p.ID); err != nil {
		return pipeline.TransientFailure, err
	}
	if err := h.content.DeleteContentByPrefix(ctx, core.ContentKey(p.ID, "")); err != nil {
		return pipeline.TransientFailure, err
	}
	h.logger.Info("document deleted", "pipeline", p.ID, "index", p.Index)
	return pipeline.Success, nil
}

// DeleteIndex drops an entire index from the vector store.
type DeleteIndex struct {
	vectors storage.VectorStore
	logger  *slog.Logger
}

var _ pipeline.Handler = (*DeleteIndex)(nil)

// NewDeleteIndex creates the delete_index step handler.
func NewDeleteIndex(vectors storage.VectorStore) (*DeleteIndex, error) {
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	return &DeleteIndex{
		vectors: vectors,
		logger:  slog.Default().With("handler", core.StepDeleteIndex),
	}, nil
}

// StepName returns the stable step name.
func (h *DeleteIndex) StepName() string {
	return core.StepDeleteIndex
}

// Invoke drops the pipeline's index. Dropping a missing index succeeds.
func (h *DeleteIndex) Invoke(ctx context.Context, p *core.Pipeline) (pipeline.Outcome, error) {
	if err := h.vectors.DeleteIndex(ctx, p.Index); err != nil {
		return pipeline.TransientFailure, err
	}
	h.logger.Info("index deleted", "index", p.Index)
	return pipeline.Success, nil
}
