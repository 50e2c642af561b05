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


// Package pipeline orchestrates document ingestion as a crash-recoverable
// chain of named steps.
//
// A scheduled pipeline is persisted together with one queued Operation. A
// Worker claims operations from the durable queue, the Orchestrator invokes
// the step's Handler, and the outcome decides what happens next: Success
// advances the pipeline and enqueues the next operation, TransientFailure
// releases the operation for a delayed retry, PermanentFailure moves it to
// the poison queue. A worker that crashes mid-step simply leaves a stale
// lock; once the lock duration elapses another worker reclaims the operation
// and the idempotent handler skips whatever work already landed.
//
// Handlers are looked up in a closed Registry populated at startup, so a
// pipeline naming an unknown step is rejected at Schedule time rather than
// failing mid-flight.
package pipeline
