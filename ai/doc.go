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


// Package ai provides abstractions for the AI services used in docpipe.
//
// This package defines interfaces for text embeddings and token counting.
// The pipeline handlers and the chunker depend on these abstractions rather
// than concrete implementations, so AI providers can be swapped without
// touching ingestion logic.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - TokenCounter: Counts model tokens for partition sizing
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// INTERFACE types to enforce abstraction. Test utility constructors
// (mock.NewMockEmbedder) return CONCRETE types to enable test assertions
// and behavior injection.
//
// # Caching
//
// CachedEmbedder wraps any Embedder with a content-addressed cache keyed by
// (text, model, provider), so re-ingesting unchanged documents never re-pays
// the embedding API:
//
//	embedder := ai.NewCachedEmbedder(inner, cache)
//	vectors, err := embedder.EmbedTexts(ctx, texts)
package ai
