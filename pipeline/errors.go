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


package pipeline

import "errors"

var (
	// ErrPipelineStoreRequired indicates the orchestrator was created without
	// a pipeline repository.
	ErrPipelineStoreRequired = errors.New("pipeline repository is required")

	// ErrContentStoreRequired indicates the orchestrator was created without
	// a content repository.
	ErrContentStoreRequired = errors.New("content repository is required")

	// ErrQueueRequired indicates the orchestrator was created without an
	// operation queue.
	ErrQueueRequired = errors.New("operation queue is required")

	// ErrRegistryRequired indicates the orchestrator was created without a
	// handler registry.
	ErrRegistryRequired = errors.New("handler registry is required")

	// ErrHandlerRequired indicates a nil handler was registered.
	ErrHandlerRequired = errors.New("handler is required")

	// ErrDuplicateHandler indicates two handlers were registered under the
	// same step name.
	ErrDuplicateHandler = errors.New("duplicate handler registration")

	// ErrInvalidConfig indicates the queue configuration failed validation.
	ErrInvalidConfig = errors.New("invalid pipeline configuration")

	// ErrWorkerStopped indicates Run or Drain was called after Release.
	ErrWorkerStopped = errors.New("worker has been stopped")
)
