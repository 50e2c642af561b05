package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/pipeline"
	"github.com/poiesic/docpipe/storage"
)

// SaveRecords writes one searchable memory record per partition into the
// vector store. Record ids derive from the partition artifact name, so the
// upserts are idempotent and a retry overwrites rather than duplicates.
type SaveRecords struct {
	content storage.ContentRepository
	vectors storage.VectorStore
	logger  *slog.Logger
}

var _ pipeline.Handler = (*SaveRecords)(nil)

// NewSaveRecords creates the save_records step handler.
func NewSaveRecords(content storage.ContentRepository, vectors storage.VectorStore) (*SaveRecords, error) {
	if content == nil {
		return nil, ErrContentStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	return &SaveRecords{
		content: content,
		vectors: vectors,
		logger:  slog.Default().With("handler", core.StepSaveRecords),
	}, nil
}

// StepName returns the stable step name.
func (h *SaveRecords) StepName() string {
	return core.StepSaveRecords
}

// Invoke assembles partition text and embedding into memory records and
// upserts them into the pipeline's index. Tags flow from the pipeline onto
// every record.
func (h *SaveRecords) Invoke(ctx context.Context, p *core.Pipeline) (pipeline.Outcome, error) {
	var records []*core.MemoryRecord
	for i := range p.Files {
		file := &p.Files[i]
		for n := 0; ; n++ {
			pName := partitionName(file.Name, n)
			if _, ok := file.Generated(pName); !ok {
				break
			}
			eName := embeddingName(file.Name, n)
			if _, ok := file.Generated(eName); !ok {
				return pipeline.TransientFailure, fmt.Errorf("%w: %s", ErrArtifactMissing, eName)
			}

			text, err := h.loadContent(ctx, p.ID, pName)
			if err != nil {
				return pipeline.TransientFailure, err
			}
			raw, err := h.loadContent(ctx, p.ID, eName)
			if err != nil {
				return pipeline.TransientFailure, err
			}
			var embedding embeddingArtifact
			if err := json.Unmarshal([]byte(raw), &embedding); err != nil {
				return pipeline.PermanentFailure,
					fmt.Errorf("corrupt embedding artifact %s: %w", eName, err)
			}

			records = append(records, &core.MemoryRecord{
				ID:         core.ContentKey(p.ID, pName),
				PipelineID: p.ID,
				SourceFile: file.Name,
				Text:       text,
				Vector:     embedding.Vector,
				Tags:       p.Tags,
			})
		}
	}

	if len(records) > 0 {
		if err := h.vectors.Upsert(ctx, p.Index, records...); err != nil {
			return pipeline.TransientFailure, err
		}
	}
	h.logger.Debug("saved memory records", "pipeline", p.ID, "index", p.Index, "records", len(records))
	return pipeline.Success, nil
}

func (h *SaveRecords) loadContent(ctx context.Context, pipelineID, name string) (string, error) {
	record, err := h.content.GetContent(ctx, core.ContentKey(pipelineID, name))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrArtifactMissing, name)
		}
		return "", err
	}
	return record.Content, nil
}
