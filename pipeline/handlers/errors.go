package handlers

import "errors"

var (
	// ErrContentStoreRequired indicates a handler was created without a
	// content repository.
	ErrContentStoreRequired = errors.New("content repository is required")

	// ErrDecoderRegistryRequired indicates the extract handler was created
	// without a decoder registry.
	ErrDecoderRegistryRequired = errors.New("decoder registry is required")

	// ErrTokenCounterRequired indicates the partition handler was created
	// without a token counter.
	ErrTokenCounterRequired = errors.New("token counter is required")

	// ErrEmbedderRequired indicates the embeddings handler was created
	// without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrVectorStoreRequired indicates a handler was created without a
	// vector store.
	ErrVectorStoreRequired = errors.New("vector store is required")

	// ErrArtifactMissing indicates an artifact a later step depends on is
	// absent from the content store.
	ErrArtifactMissing = errors.New("expected artifact is missing")
)
