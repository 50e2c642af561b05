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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidPipeline indicates a Pipeline failed validation.
	ErrInvalidPipeline = errors.New("invalid pipeline")

	// ErrInvalidOperation indicates an Operation failed validation.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrEmptyStepList indicates a pipeline was defined with no steps.
	ErrEmptyStepList = errors.New("step list cannot be empty")

	// ErrUnknownStep indicates a step name has no registered handler.
	ErrUnknownStep = errors.New("unknown step name")

	// ErrStepMismatch indicates the executed step is not the pipeline's next
	// remaining step.
	ErrStepMismatch = errors.New("step is not the next remaining step")

	// ErrStepInvariant indicates completed ++ remaining no longer equals the
	// planned step list.
	ErrStepInvariant = errors.New("completed and remaining steps do not match plan")

	// ErrEmptyIndex indicates the pipeline has no owner index.
	ErrEmptyIndex = errors.New("index cannot be empty")

	// ErrEmptyFileName indicates a file record has no name.
	ErrEmptyFileName = errors.New("file name cannot be empty")

	// ErrInvalidStepName indicates a step name violates the naming pattern.
	ErrInvalidStepName = errors.New("invalid step name")

	// ErrInvalidPoisonSuffix indicates a poison queue suffix violates the
	// naming pattern.
	ErrInvalidPoisonSuffix = errors.New("invalid poison queue suffix")
)
