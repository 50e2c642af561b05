package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docpipe/chunker"
	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/pipeline"
	"github.com/poiesic/docpipe/storage"
)

// Partition splits each extracted text into token-bounded partitions and
// stores every partition as its own artifact. Partitioning is deterministic,
// so rerunning the step regenerates identical partitions and the upserts are
// harmless.
type Partition struct {
	content storage.ContentRepository
	counter chunker.TokenCounter
	opts    chunker.Options
	logger  *slog.Logger
}

var _ pipeline.Handler = (*Partition)(nil)

// NewPartition creates the partition step handler. The Format and
// PagesEndSentences fields of opts are overridden per file.
func NewPartition(content storage.ContentRepository, counter chunker.TokenCounter, opts chunker.Options) (*Partition, error) {
	if content == nil {
		return nil, ErrContentStoreRequired
	}
	if counter == nil {
		return nil, ErrTokenCounterRequired
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Partition{
		content: content,
		counter: counter,
		opts:    opts,
		logger:  slog.Default().With("handler", core.StepPartition),
	}, nil
}

// StepName returns the stable step name.
func (h *Partition) StepName() string {
	return core.StepPartition
}

// Invoke partitions every extracted text. A missing extract artifact means
// the previous step's write did not land, which a retry can fix.
func (h *Partition) Invoke(ctx context.Context, p *core.Pipeline) (pipeline.Outcome, error) {
	for i := range p.Files {
		file := &p.Files[i]

		source := extractedName(file.Name)
		if _, ok := file.Generated(source); !ok {
			return pipeline.TransientFailure, fmt.Errorf("%w: %s", ErrArtifactMissing, source)
		}
		record, err := h.content.GetContent(ctx, core.ContentKey(p.ID, source))
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return pipeline.TransientFailure, fmt.Errorf("%w: %s", ErrArtifactMissing, source)
			}
			return pipeline.TransientFailure, err
		}

		opts := h.opts
		opts.Format = formatForMime(file.MimeType)

		pages := strings.Split(record.Content, pageSeparator)
		partitions, err := chunker.SplitPages(pages, opts, h.counter)
		if err != nil {
			return pipeline.PermanentFailure, err
		}

		for n, part := range partitions {
			name := partitionName(file.Name, n)
			if _, done := file.Generated(name); done {
				continue
			}
			artifact := &core.ContentRecord{
				ID:       core.ContentKey(p.ID, name),
				Content:  part.Text,
				MimeType: "text/plain",
				ByteSize: int64(len(part.Text)),
				Tags:     p.Tags,
			}
			if err := h.content.UpsertContent(ctx, artifact); err != nil {
				return pipeline.TransientFailure, err
			}
			file.AddGenerated(name, core.GeneratedFile{
				Type:        core.ArtifactPartition,
				IsPartition: true,
				SizeBytes:   artifact.ByteSize,
			})
		}
		h.logger.Debug("partitioned file",
			"pipeline", p.ID, "file", file.Name, "partitions", len(partitions))
	}
	return pipeline.Success, nil
}
