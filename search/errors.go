package search

import "errors"

var (
	// ErrVectorStoreRequired indicates the searcher was created without a
	// vector store.
	ErrVectorStoreRequired = errors.New("vector store is required")

	// ErrEmbedderRequired indicates the searcher was created without an
	// embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrEmptyQuery indicates a search with no query text.
	ErrEmptyQuery = errors.New("query text is empty")
)
