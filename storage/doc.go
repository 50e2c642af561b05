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


// Package storage provides the storage abstraction layer for docpipe.
//
// This package defines repository interfaces that decouple storage
// implementation from the pipeline engine. The orchestrator depends only on
// these interfaces, so different backends (BadgerDB, in-memory, remote
// services) can be used interchangeably.
//
// # Interfaces
//
//   - PipelineRepository: durable pipeline state, one record per pipeline
//   - ContentRepository: content records and handler-generated artifacts
//   - OperationQueue: durable work queue with claim-based distributed locks
//     and a poison queue for operations that exceeded their retry budget
//   - EmbeddingCache: content-addressed embedding vectors
//   - VectorStore: searchable memory records per index
//
// # Usage
//
// Create the BadgerDB-backed stores:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	pipelines := badger.NewPipelineRepository(backend)
//
// Use in tests with in-memory storage:
//
//	stores, err := badger.NewMemoryStores()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support concurrent
// access from multiple goroutines. The operation queue additionally
// guarantees that a claim is atomic: no two workers ever hold the same
// operation inside one lock window.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and timeout
// support.
package storage
