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
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/extract"
	"github.com/poiesic/docpipe/pipeline"
	"github.com/poiesic/docpipe/storage"
)

// pageSeparator joins decoded pages inside the extracted-text artifact so
// the partition step can recover page boundaries.
const pageSeparator = "\f"

// Extract decodes each uploaded file into plain text and stores the result
// as a "<file>.extract.txt" artifact. Files whose artifact already exists are
// skipped, so a retry after a crash resumes where the last attempt stopped.
type Extract struct {
	content  storage.ContentRepository
	decoders *extract.Registry
	logger   *slog.Logger
}

var _ pipeline.Handler = (*Extract)(nil)

// NewExtract creates the extract step handler.
func NewExtract(content storage.ContentRepository, decoders *extract.Registry) (*Extract, error) {
	if content == nil {
		return nil, ErrContentStoreRequired
	}
	if decoders == nil {
		return nil, ErrDecoderRegistryRequired
	}
	return &Extract{
		content:  content,
		decoders: decoders,
		logger:   slog.Default().With("handler", core.StepExtract),
	}, nil
}

// StepName returns the stable step name.
func (h *Extract) StepName() string {
	return core.StepExtract
}

// Invoke decodes every file that does not yet have an extracted-text
// artifact. Unsupported or undecodable content is a permanent failure;
// storage trouble is transient.
func (h *Extract) Invoke(ctx context.Context, p *core.Pipeline) (pipeline.Outcome, error) {
	for i := range p.Files {
		file := &p.Files[i]
		artifact := extractedName(file.Name)
		if _, done := file.Generated(artifact); done {
			h.logger.Debug("extract already done", "pipeline", p.ID, "file", file.Name)
			continue
		}

		raw, err := h.content.GetContent(ctx, core.ContentKey(p.ID, file.Name))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return pipeline.PermanentFailure, errors.New("uploaded content not found: " + file.Name)
			}
			return pipeline.TransientFailure, err
		}

		result, err := h.decoders.Decode(ctx, file.MimeType, []byte(raw.Content))
		if err != nil {
			// Unsupported and malformed content fail alike: retrying cannot
			// change the bytes.
			return pipeline.PermanentFailure, err
		}

		text := strings.Join(result.Pages, pageSeparator)
		record := &core.ContentRecord{
			ID:       core.ContentKey(p.ID, artifact),
			Content:  text,
			MimeType: "text/plain",
			ByteSize: int64(len(text)),
			Tags:     p.Tags,
		}
		if err := h.content.UpsertContent(ctx, record); err != nil {
			return pipeline.TransientFailure, err
		}

		file.AddGenerated(artifact, core.GeneratedFile{
			Type:      core.ArtifactExtractedText,
			SizeBytes: record.ByteSize,
		})
		h.logger.Debug("extracted text", "pipeline", p.ID, "file", file.Name, "bytes", record.ByteSize)
	}
	return pipeline.Success, nil
}
