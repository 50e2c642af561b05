package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayForAttempt(t *testing.T) {
	base := time.Second
	maxDelay := 10 * time.Second

	assert.Equal(t, time.Second, DelayForAttempt(base, maxDelay, 1))
	assert.Equal(t, 2*time.Second, DelayForAttempt(base, maxDelay, 2))
	assert.Equal(t, 4*time.Second, DelayForAttempt(base, maxDelay, 3))
	assert.Equal(t, 8*time.Second, DelayForAttempt(base, maxDelay, 4))
	// Capped from the fifth attempt on.
	assert.Equal(t, maxDelay, DelayForAttempt(base, maxDelay, 5))
	assert.Equal(t, maxDelay, DelayForAttempt(base, maxDelay, 20))
	// Attempts below 1 behave like the first.
	assert.Equal(t, time.Second, DelayForAttempt(base, maxDelay, 0))
}
