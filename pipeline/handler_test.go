package pipeline

import (
	"context"
	"testing"

	"github.com/poiesic/docpipe/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedHandler struct {
	name string
}

func (h *namedHandler) StepName() string { return h.name }

func (h *namedHandler) Invoke(ctx context.Context, p *core.Pipeline) (Outcome, error) {
	return Success, nil
}

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry(&namedHandler{name: "extract"}, &namedHandler{name: "partition"})
	require.NoError(t, err)

	assert.True(t, r.Knows("extract"))
	assert.True(t, r.Knows("partition"))
	assert.False(t, r.Knows("gen_embeddings"))
	assert.ElementsMatch(t, []string{"extract", "partition"}, r.Steps())

	h, err := r.Get("extract")
	require.NoError(t, err)
	assert.Equal(t, "extract", h.StepName())

	_, err = r.Get("nope")
	assert.ErrorIs(t, err, core.ErrUnknownStep)
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(&namedHandler{name: "extract"}, &namedHandler{name: "extract"})
	assert.ErrorIs(t, err, ErrDuplicateHandler)
}

func TestNewRegistryRejectsNilHandler(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.ErrorIs(t, err, ErrHandlerRequired)
}

func TestNewRegistryRejectsBadStepName(t *testing.T) {
	_, err := NewRegistry(&namedHandler{name: "Not A Step"})
	assert.ErrorIs(t, err, core.ErrInvalidStepName)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "transient_failure", TransientFailure.String())
	assert.Equal(t, "permanent_failure", PermanentFailure.String())
}
