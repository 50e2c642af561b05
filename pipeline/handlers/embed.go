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


package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/docpipe/ai"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/pipeline"
	"github.com/poiesic/docpipe/storage"
)

// embeddingArtifact is the persisted JSON layout of one partition embedding.
type embeddingArtifact struct {
	Vector   []float32 `json:"vector"`
	Model    string    `json:"model"`
	Provider string    `json:"provider"`
}

// GenEmbeddings embeds every partition that does not yet have an embedding
// artifact. Wrapping the embedder with ai.CachedEmbedder makes re-ingesting
// unchanged text skip the provider entirely; this handler only skips work
// based on artifacts that already landed for this pipeline.
type GenEmbeddings struct {
	content  storage.ContentRepository
	embedder ai.Embedder
	logger   *slog.Logger
}

var _ pipeline.Handler = (*GenEmbeddings)(nil)

// NewGenEmbeddings creates the gen_embeddings step handler.
func NewGenEmbeddings(content storage.ContentRepository, embedder ai.Embedder) (*GenEmbeddings, error) {
	if content == nil {
		return nil, ErrContentStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	return &GenEmbeddings{
		content:  content,
		embedder: embedder,
		logger:   slog.Default().With("handler", core.StepGenEmbeddings),
	}, nil
}

// StepName returns the stable step name.
func (h *GenEmbeddings) StepName() string {
	return core.StepGenEmbeddings
}

// Invoke embeds pending partitions in one batched provider call per file.
// Provider errors (throttling, 5xx) are transient; the retry re-embeds only
// the partitions whose artifacts have not landed.
func (h *GenEmbeddings) Invoke(ctx context.Context, p *core.Pipeline) (pipeline.Outcome, error) {
	for i := range p.Files {
		file := &p.Files[i]

		var pending []int
		var texts []string
		for n := 0; ; n++ {
			if _, ok := file.Generated(partitionName(file.Name, n)); !ok {
				break
			}
			if _, done := file.Generated(embeddingName(file.Name, n)); done {
				continue
			}
			record, err := h.content.GetContent(ctx, core.ContentKey(p.ID, partitionName(file.Name, n)))
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return pipeline.TransientFailure,
						fmt.Errorf("%w: %s", ErrArtifactMissing, partitionName(file.Name, n))
				}
				return pipeline.TransientFailure, err
			}
			pending = append(pending, n)
			texts = append(texts, record.Content)
		}

		if len(pending) == 0 {
			h.logger.Debug("embeddings already done", "pipeline", p.ID, "file", file.Name)
			continue
		}

		vectors, err := h.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return pipeline.TransientFailure, err
		}
		if len(vectors) != len(texts) {
			return pipeline.TransientFailure,
				fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
		}

		for j, n := range pending {
			name := embeddingName(file.Name, n)
			payload, err := json.Marshal(embeddingArtifact{
				Vector:   vectors[j],
				Model:    h.embedder.Model(),
				Provider: h.embedder.Provider(),
			})
			if err != nil {
				return pipeline.PermanentFailure, err
			}
			artifact := &core.ContentRecord{
				ID:       core.ContentKey(p.ID, name),
				Content:  string(payload),
				MimeType: "application/json",
				ByteSize: int64(len(payload)),
				Tags:     p.Tags,
			}
			if err := h.content.UpsertContent(ctx, artifact); err != nil {
				return pipeline.TransientFailure, err
			}
			file.AddGenerated(name, core.GeneratedFile{
				Type:      core.ArtifactEmbedding,
				SizeBytes: artifact.ByteSize,
			})
		}
		h.logger.Debug("embedded partitions",
			"pipeline", p.ID, "file", file.Name, "embedded", len(pending))
	}
	return pipeline.Success, nil
}
