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

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrClaimConflict indicates a concurrent claim won the operation batch.
	// Callers should treat this as an empty batch and re-poll.
	ErrClaimConflict = errors.New("claim lost to a concurrent worker")

	// ErrLockContention indicates a worker tried to complete an operation
	// whose lock was reclaimed by another worker. This should never be
	// observable under a correct atomic claim; any occurrence is fatal to the
	// operation.
	ErrLockContention = errors.New("operation lock held by another worker")

	// ErrOperationComplete indicates a mutation was attempted on an operation
	// already in a terminal state.
	ErrOperationComplete = errors.New("operation already complete")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)
