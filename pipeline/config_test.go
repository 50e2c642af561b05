package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero poll delay", func(c *Config) { c.PollDelay = 0 }},
		{"zero batch size", func(c *Config) { c.FetchBatchSize = 0 }},
		{"lock below floor", func(c *Config) { c.LockDuration = 29 * time.Second }},
		{"negative retries", func(c *Config) { c.MaxRetriesBeforePoison = -1 }},
		{"bad poison suffix", func(c *Config) { c.PoisonQueueSuffix = "Not Valid!" }},
		{"empty poison suffix", func(c *Config) { c.PoisonQueueSuffix = "" }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"max below base delay", func(c *Config) { c.RetryMaxDelay = c.RetryBaseDelay / 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestLockDurationFloorBoundary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LockDuration = MinLockDuration
	require.NoError(t, cfg.Validate())
}
