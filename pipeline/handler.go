package pipeline

import (
	"context"
	"fmt"

	"github.com/poiesic/docpipe/core"
)

// Outcome classifies a handler invocation for the orchestrator.
type Outcome int

const (
	// Success means the step completed and the pipeline can advance.
	Success Outcome = iota

	// TransientFailure means the step failed in a way retrying can fix
	// (provider throttling, transient I/O).
	TransientFailure

	// PermanentFailure means retrying cannot help (unsupported content,
	// corrupt input); the operation goes straight to the poison queue.
	PermanentFailure
)

// String returns the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case TransientFailure:
		return "transient_failure"
	case PermanentFailure:
		return "permanent_failure"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Handler executes one named pipeline step.
//
// Invoke must be safe to call more than once for the same pipeline state:
// a handler checks for the output it would generate before redoing work, so
// a crashed worker's retry skips whatever already landed. Mutations to the
// pipeline (generated-file records) are persisted by the orchestrator only
// after a Success outcome.
//
// Handlers never panic or return unexpected errors across the orchestrator
// boundary for expected failure modes; they classify them as an Outcome.
type Handler interface {
	// StepName returns the stable step name this handler executes.
	StepName() string

	// Invoke runs the step against the pipeline. The returned error carries
	// detail for the failure reason; it may be nil on Success.
	Invoke(ctx context.Context, p *core.Pipeline) (Outcome, error)
}

// Registry maps step names to handlers. It is populated at startup and then
// read-only, so unknown step names fail at schedule time rather than during
// execution.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates a registry from the given handlers.
func NewRegistry(handlers ...Handler) (*Registry, error) {
	r := &Registry{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		if h == nil {
			return nil, ErrHandlerRequired
		}
		name := h.StepName()
		if err := core.ValidateStepName(name); err != nil {
			return nil, err
		}
		if _, exists := r.handlers[name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateHandler, name)
		}
		r.handlers[name] = h
	}
	return r, nil
}

// Get returns the handler for a step name.
func (r *Registry) Get(step string) (Handler, error) {
	h, ok := r.handlers[step]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownStep, step)
	}
	return h, nil
}

// Knows reports whether a handler is registered for the step name.
func (r *Registry) Knows(step string) bool {
	_, ok := r.handlers[step]
	return ok
}

// Steps lists the registered step names.
func (r *Registry) Steps() []string {
	steps := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		steps = append(steps, name)
	}
	return steps
}
