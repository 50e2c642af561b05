package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in the same order as the
	// input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Model reports the model identifier used to generate embeddings.
	Model() string

	// Provider reports the name of the backing embedding service.
	Provider() string
}

// TokenCounter counts model tokens in text. Used by the chunker to size
// partitions against model context limits.
type TokenCounter interface {
	CountTokens(text string) int
}

// AIProvider aggregates AI services for convenient initialization and
// lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// TokenCounter returns the token counting service matching the
	// embedding model's tokenizer.
	TokenCounter() TokenCounter

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
