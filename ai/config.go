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


package ai

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// ProviderName identifies the embedding service for cache keying, so
	// identical text embedded by two services never shares a cache entry.
	// Default: "openai"
	ProviderName string

	// Encoding is the tiktoken encoding used for token counting.
	// Default: "cl100k_base"
	Encoding string

	// MaxBatchSize caps how many texts are sent to the embedding API in one
	// request. Default: 64
	MaxBatchSize int

	// MaxRetries is the attempt budget for each embedding request. Default: 3
	MaxRetries int

	// RetryBaseDelay seeds the exponential backoff between embedding request
	// attempts. Default: 1s
	RetryBaseDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithProviderName sets the provider name used in cache keys.
func WithProviderName(name string) ConfigOption {
	return func(c *Config) {
		c.ProviderName = name
	}
}

// WithEncoding sets the tiktoken encoding for token counting.
func WithEncoding(encoding string) ConfigOption {
	return func(c *Config) {
		c.Encoding = encoding
	}
}

// WithMaxBatchSize sets the embedding request batch cap.
func WithMaxBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.MaxBatchSize = size
	}
}

// WithMaxRetries sets the attempt budget for embedding requests.
func WithMaxRetries(attempts int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = attempts
	}
}

// WithRetryBaseDelay sets the base backoff between embedding request
// attempts.
func WithRetryBaseDelay(delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryBaseDelay = delay
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:  "http://localhost:11434/v1",
		EmbeddingModel: "embeddinggemma",
		ProviderName:   "openai",
		Encoding:       "cl100k_base",
		MaxBatchSize:   64,
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided
// options.
//
// Example:
//   cfg := NewConfig(
//       WithEmbeddingHost("http://localhost:11434/v1"),
//       WithEmbeddingModel("text-embedding-3-small"),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to the host if missing, which is
// required by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ProviderName == "" {
		return errors.New("ai config: ProviderName is required")
	}
	if c.Encoding == "" {
		return errors.New("ai config: Encoding is required")
	}
	if c.MaxBatchSize < 1 {
		return errors.New("ai config: MaxBatchSize must be at least 1")
	}
	if c.MaxRetries < 1 {
		return errors.New("ai config: MaxRetries must be at least 1")
	}
	if c.RetryBaseDelay <= 0 {
		return errors.New("ai config: RetryBaseDelay must be positive")
	}
	return nil
}
