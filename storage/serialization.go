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


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/docpipe/core"
)

// Records are persisted as JSON so pipeline and operation state can be polled
// and inspected without going through the engine.

// MarshalPipeline serializes a Pipeline to bytes.
func MarshalPipeline(p *core.Pipeline) ([]byte, error) {
	return marshal(p)
}

// UnmarshalPipeline deserializes a Pipeline from bytes.
func UnmarshalPipeline(data []byte) (*core.Pipeline, error) {
	return unmarshal[core.Pipeline](data)
}

// MarshalOperation serializes an Operation to bytes.
func MarshalOperation(op *core.Operation) ([]byte, error) {
	return marshal(op)
}

// UnmarshalOperation deserializes an Operation from bytes.
func UnmarshalOperation(data []byte) (*core.Operation, error) {
	return unmarshal[core.Operation](data)
}

// MarshalContentRecord serializes a ContentRecord to bytes.
func MarshalContentRecord(record *core.ContentRecord) ([]byte, error) {
	return marshal(record)
}

// UnmarshalContentRecord deserializes a ContentRecord from bytes.
func UnmarshalContentRecord(data []byte) (*core.ContentRecord, error) {
	return unmarshal[core.ContentRecord](data)
}

// MarshalMemoryRecord serializes a MemoryRecord to bytes.
func MarshalMemoryRecord(record *core.MemoryRecord) ([]byte, error) {
	return marshal(record)
}

// UnmarshalMemoryRecord deserializes a MemoryRecord from bytes.
func UnmarshalMemoryRecord(data []byte) (*core.MemoryRecord, error) {
	return unmarshal[core.MemoryRecord](data)
}

// MarshalCachedEmbedding serializes a CachedEmbedding to bytes.
func MarshalCachedEmbedding(entry *core.CachedEmbedding) ([]byte, error) {
	return marshal(entry)
}

// UnmarshalCachedEmbedding deserializes a CachedEmbedding from bytes.
func UnmarshalCachedEmbedding(data []byte) (*core.CachedEmbedding, error) {
	return unmarshal[core.CachedEmbedding](data)
}

func marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

func unmarshal[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &v, nil
}
