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

import (
	"fmt"
	"regexp"
)

var (
	stepNamePattern     = regexp.MustCompile(`^[a-z][a-z0-9_]{0,47}$`)
	poisonSuffixPattern = regexp.MustCompile(`^[a-z0-9-]{1,30}$`)
)

// ValidatePipeline validates a Pipeline according to domain rules.
//
// Validation rules:
//   - ID and Index must not be empty
//   - Steps must be non-empty and every name must match the step name pattern
//   - CompletedSteps ++ RemainingSteps must equal Steps (set and order)
//   - every file record must have a name
//
// NOT validated (the orchestrator owns these):
//   - whether each step name has a registered handler
//   - generated file descriptors (populated by handlers)
func ValidatePipeline(p *Pipeline) error {
	if p == nil {
		return fmt.Errorf("%w: pipeline is nil", ErrInvalidPipeline)
	}
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPipeline)
	}
	if p.Index == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPipeline, ErrEmptyIndex)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPipeline, ErrEmptyStepList)
	}
	for _, step := range p.Steps {
		if !stepNamePattern.MatchString(step) {
			return fmt.Errorf("%w: %w: %q", ErrInvalidPipeline, ErrInvalidStepName, step)
		}
	}
	if err := validateStepInvariant(p.Steps, p.CompletedSteps, p.RemainingSteps); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPipeline, err)
	}
	for i := range p.Files {
		if p.Files[i].Name == "" {
			return fmt.Errorf("%w: %w", ErrInvalidPipeline, ErrEmptyFileName)
		}
	}
	return nil
}

// ValidateOperation validates an Operation according to domain rules.
func ValidateOperation(o *Operation) error {
	if o == nil {
		return fmt.Errorf("%w: operation is nil", ErrInvalidOperation)
	}
	if o.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidOperation)
	}
	if o.ContentID == "" {
		return fmt.Errorf("%w: missing content id", ErrInvalidOperation)
	}
	if len(o.Steps) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidOperation, ErrEmptyStepList)
	}
	if err := validateStepInvariant(o.Steps, o.CompletedSteps, o.RemainingSteps); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}
	return nil
}

// ValidateStepName checks a step name against the naming pattern: lowercase
// letters, digits, and underscores, starting with a letter.
func ValidateStepName(step string) error {
	if !stepNamePattern.MatchString(step) {
		return fmt.Errorf("%w: %q", ErrInvalidStepName, step)
	}
	return nil
}

// ValidatePoisonSuffix checks a poison queue name suffix against the
// restricted naming pattern.
func ValidatePoisonSuffix(suffix string) error {
	if !poisonSuffixPattern.MatchString(suffix) {
		return fmt.Errorf("%w: %q", ErrInvalidPoisonSuffix, suffix)
	}
	return nil
}

// validateStepInvariant checks that completed ++ remaining equals planned,
// preserving order.
func validateStepInvariant(planned, completed, remaining []string) error {
	if len(completed)+len(remaining) != len(planned) {
		return ErrStepInvariant
	}
	for i, step := range completed {
		if planned[i] != step {
			return ErrStepInvariant
		}
	}
	offset := len(completed)
	for i, step := range remaining {
		if planned[offset+i] != step {
			return ErrStepInvariant
		}
	}
	return nil
}
