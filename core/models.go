package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// Step names recognized by the default handler chain.
const (
	StepExtract        = "extract"
	StepPartition      = "partition"
	StepGenEmbeddings  = "gen_embeddings"
	StepSaveRecords    = "save_records"
	StepDeleteDocument = "delete_document"
	StepDeleteIndex    = "delete_index"
)

// DefaultSteps returns the standard ingestion step list applied when a client
// uploads a document without naming steps explicitly.
func DefaultSteps() []string {
	return []string{StepExtract, StepPartition, StepGenEmbeddings, StepSaveRecords}
}

// ArtifactType classifies a file generated by a pipeline handler.
type ArtifactType int

const (
	// ArtifactExtractedText is plain text produced by the extract step.
	ArtifactExtractedText ArtifactType = iota + 1
	// ArtifactPartition is one text partition produced by the partition step.
	ArtifactPartition
	// ArtifactEmbedding is an embedding JSON document produced by gen_embeddings.
	ArtifactEmbedding
)

// GeneratedFile describes one artifact a handler produced for a source file.
// Handlers use the presence of a descriptor to skip work already done.
type GeneratedFile struct {
	Type        ArtifactType `json:"type"`
	IsPartition bool         `json:"isPartition"`
	SizeBytes   int64        `json:"sizeBytes"`
}

// FileRecord tracks one uploaded file within a pipeline and the artifacts
// generated from it. GeneratedFiles is append-only.
type FileRecord struct {
	Name           string                   `json:"name"`
	MimeType       string                   `json:"mimeType"`
	SizeBytes      int64                    `json:"sizeBytes"`
	GeneratedFiles map[string]GeneratedFile `json:"generatedFiles,omitempty"`
}

// Generated returns the descriptor for a generated file name, if present.
func (f *FileRecord) Generated(name string) (GeneratedFile, bool) {
	gf, ok := f.GeneratedFiles[name]
	return gf, ok
}

// AddGenerated records a generated artifact descriptor for this file.
func (f *FileRecord) AddGenerated(name string, gf GeneratedFile) {
	if f.GeneratedFiles == nil {
		f.GeneratedFiles = make(map[string]GeneratedFile)
	}
	f.GeneratedFiles[name] = gf
}

// Pipeline is the tracked processing state for one ingested document.
// Invariant: Steps == CompletedSteps ++ RemainingSteps at every observation
// point. Only the orchestrator mutates a Pipeline.
type Pipeline struct {
	ID             string              `json:"id"`
	Index          string              `json:"index"`
	Tags           map[string][]string `json:"tags,omitempty"`
	Steps          []string            `json:"steps"`
	CompletedSteps []string            `json:"completedSteps"`
	RemainingSteps []string            `json:"remainingSteps"`
	Files          []FileRecord        `json:"files,omitempty"`
	Cancelled      bool                `json:"cancelled,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	LastUpdatedAt  time.Time           `json:"lastUpdatedAt"`
}

// NewPipeline creates a pipeline with a fresh ID and all steps remaining.
func NewPipeline(index string, steps []string, files ...FileRecord) *Pipeline {
	now := time.Now().UTC()
	remaining := make([]string, len(steps))
	copy(remaining, steps)
	planned := make([]string, len(steps))
	copy(planned, steps)
	return &Pipeline{
		ID:             uuid.NewString(),
		Index:          index,
		Steps:          planned,
		CompletedSteps: []string{},
		RemainingSteps: remaining,
		Files:          files,
		CreatedAt:      now,
		LastUpdatedAt:  now,
	}
}

// NextStep returns the next remaining step name, if any.
func (p *Pipeline) NextStep() (string, bool) {
	if len(p.RemainingSteps) == 0 {
		return "", false
	}
	return p.RemainingSteps[0], true
}

// CompleteStep moves the given step from remaining to completed. The step must
// be the head of RemainingSteps; anything else indicates the operation and the
// pipeline disagree about progress.
func (p *Pipeline) CompleteStep(step string) error {
	if len(p.RemainingSteps) == 0 || p.RemainingSteps[0] != step {
		return ErrStepMismatch
	}
	p.CompletedSteps = append(p.CompletedSteps, step)
	p.RemainingSteps = p.RemainingSteps[1:]
	p.LastUpdatedAt = time.Now().UTC()
	return nil
}

// Complete reports whether all planned steps have run.
func (p *Pipeline) Complete() bool {
	return len(p.RemainingSteps) == 0
}

// File returns the file record with the given name, or nil.
func (p *Pipeline) File(name string) *FileRecord {
	for i := range p.Files {
		if p.Files[i].Name == name {
			return &p.Files[i]
		}
	}
	return nil
}

// ContentKey builds the content-store id for a file or artifact belonging to
// a pipeline. All of a pipeline's content shares the "pipelineID/" prefix so
// cleanup can drop it in one prefix delete.
func ContentKey(pipelineID, name string) string {
	return pipelineID + "/" + name
}

// Operation is one queued, lockable unit of pipeline advancement. An Operation
// with a non-nil LastAttempt and Complete == false is considered locked until
// the lock duration elapses.
type Operation struct {
	ID                string     `json:"id"`
	ContentID         string     `json:"contentId"`
	Steps             []string   `json:"steps"`
	CompletedSteps    []string   `json:"completedSteps"`
	RemainingSteps    []string   `json:"remainingSteps"`
	Complete          bool       `json:"complete"`
	Cancelled         bool       `json:"cancelled"`
	FailureCount      int        `json:"failureCount"`
	LastFailureReason string     `json:"lastFailureReason,omitempty"`
	LastAttempt       *time.Time `json:"lastAttempt,omitempty"`
	NotBefore         *time.Time `json:"notBefore,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// NewOperation creates the queued work unit for a pipeline's current state.
func NewOperation(p *Pipeline) *Operation {
	steps := make([]string, len(p.Steps))
	copy(steps, p.Steps)
	completed := make([]string, len(p.CompletedSteps))
	copy(completed, p.CompletedSteps)
	remaining := make([]string, len(p.RemainingSteps))
	copy(remaining, p.RemainingSteps)
	return &Operation{
		ID:             uuid.NewString(),
		ContentID:      p.ID,
		Steps:          steps,
		CompletedSteps: completed,
		RemainingSteps: remaining,
		CreatedAt:      time.Now().UTC(),
	}
}

// Locked reports whether the operation holds an unexpired lock.
func (o *Operation) Locked(now time.Time, lockDuration time.Duration) bool {
	if o.Complete || o.LastAttempt == nil {
		return false
	}
	return now.Sub(*o.LastAttempt) < lockDuration
}

// Claimable reports whether a worker may claim the operation at the given
// instant. Delayed requeues are expressed through NotBefore.
func (o *Operation) Claimable(now time.Time, lockDuration time.Duration) bool {
	if o.Complete || o.Cancelled {
		return false
	}
	if o.NotBefore != nil && now.Before(*o.NotBefore) {
		return false
	}
	return !o.Locked(now, lockDuration)
}

// ContentRecord is the source-of-truth record for one piece of ingested
// content. Ready flips to true only after the terminal save step succeeds.
type ContentRecord struct {
	ID        string              `json:"id"`
	Content   string              `json:"content"`
	MimeType  string              `json:"mimeType"`
	ByteSize  int64               `json:"byteSize"`
	Ready     bool                `json:"ready"`
	Tags      map[string][]string `json:"tags,omitempty"`
	Metadata  map[string]string   `json:"metadata,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// MemoryRecord is one searchable unit saved to the vector store: a text
// partition plus its embedding vector.
type MemoryRecord struct {
	ID         string              `json:"id"`
	PipelineID string              `json:"pipelineId"`
	SourceFile string              `json:"sourceFile"`
	Text       string              `json:"text"`
	Vector     []float32           `json:"vector"`
	Tags       map[string][]string `json:"tags,omitempty"`
}

// SearchResult is a memory record matched by vector similarity search.
type SearchResult struct {
	Record *MemoryRecord
	Score  float32
}

// CacheKey identifies a cached embedding. It is derived purely from the
// content, model, and provider, never from the pipeline that produced it.
type CacheKey uint64

// EmbeddingCacheKey derives a deterministic cache key using BLAKE2b hashing,
// so identical text embedded with the same model and provider always hits.
func EmbeddingCacheKey(text, model, provider string) CacheKey {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(strings.TrimSpace(text)))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(provider))
	sum := h.Sum(nil)
	return CacheKey(binary.LittleEndian.Uint64(sum))
}

// CachedEmbedding is an immutable cache entry. TokenCount is nil when the
// provider did not report usage.
type CachedEmbedding struct {
	Vector     []float32 `json:"vector"`
	TokenCount *int      `json:"tokenCount,omitempty"`
	Model      string    `json:"model"`
	Provider   string    `json:"provider"`
	CreatedAt  time.Time `json:"createdAt"`
}

// PipelineStatus is the externally pollable view of a pipeline. Failed is set
// when the pipeline's operation was moved to the poison queue.
type PipelineStatus struct {
	PipelineID        string   `json:"pipelineId"`
	Index             string   `json:"index"`
	Completed         bool     `json:"completed"`
	Failed            bool     `json:"failed"`
	CompletedSteps    []string `json:"completedSteps"`
	RemainingSteps    []string `json:"remainingSteps"`
	LastFailureReason string   `json:"lastFailureReason,omitempty"`
}
