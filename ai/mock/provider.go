package mock

import "github.com/poiesic/docpipe/ai"

// MockProvider is a test double for ai.AIProvider.
type MockProvider struct {
	embedder *MockEmbedder
	counter  WordCounter
	closed   bool
}

// NewMockProvider creates a provider whose services are deterministic mocks.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{embedder: NewMockEmbedder()}
}

// Embedder returns the mock embedding service.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// TokenCounter returns the word-based token counter.
func (p *MockProvider) TokenCounter() ai.TokenCounter {
	return p.counter
}

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.closed = true
	return nil
}

// GetMockEmbedder exposes the concrete embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed
}
