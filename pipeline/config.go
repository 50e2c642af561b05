package pipeline

import (
	"fmt"
	"time"

	"github.com/poiesic/docpipe/core"
)

// MinLockDuration is the safety floor for claim locks. Shorter locks risk two
// workers processing the same operation; the floor keeps a slow handler from
// losing its lock mid-step.
const MinLockDuration = 30 * time.Second

// Config holds the queue and worker tuning knobs.
type Config struct {
	// PollDelay is how often an idle worker re-polls the queue.
	PollDelay time.Duration `yaml:"poll_delay"`

	// FetchBatchSize is how many operations one poll may claim.
	FetchBatchSize int `yaml:"fetch_batch_size"`

	// LockDuration is how long a claim lock holds before a crashed worker's
	// operation becomes re-claimable. Must be at least MinLockDuration.
	LockDuration time.Duration `yaml:"lock_duration"`

	// MaxRetriesBeforePoison is how many transient failures an operation may
	// accumulate before the next failure moves it to the poison queue.
	MaxRetriesBeforePoison int `yaml:"max_retries_before_poison"`

	// PoisonQueueSuffix names the poison queue. Restricted to lowercase
	// letters, digits and dashes, at most 30 characters.
	PoisonQueueSuffix string `yaml:"poison_queue_suffix"`

	// Workers is the worker pool size.
	Workers int `yaml:"workers"`

	// RetryBaseDelay seeds the exponential backoff between retries.
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	// RetryMaxDelay caps the exponential backoff.
	RetryMaxDelay time.Duration `yaml:"retry_max_delay"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		PollDelay:              time.Second,
		FetchBatchSize:         4,
		LockDuration:           60 * time.Second,
		MaxRetriesBeforePoison: 3,
		PoisonQueueSuffix:      "poison",
		Workers:                4,
		RetryBaseDelay:         2 * time.Second,
		RetryMaxDelay:          2 * time.Minute,
	}
}

// Validate checks the configuration against its bounds.
func (c *Config) Validate() error {
	if c.PollDelay <= 0 {
		return fmt.Errorf("%w: poll delay must be positive", ErrInvalidConfig)
	}
	if c.FetchBatchSize < 1 {
		return fmt.Errorf("%w: fetch batch size must be at least 1", ErrInvalidConfig)
	}
	if c.LockDuration < MinLockDuration {
		return fmt.Errorf("%w: lock duration %s below floor %s",
			ErrInvalidConfig, c.LockDuration, MinLockDuration)
	}
	if c.MaxRetriesBeforePoison < 0 {
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalidConfig)
	}
	if err := core.ValidatePoisonSuffix(c.PoisonQueueSuffix); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("%w: retry delays must satisfy 0 < base <= max", ErrInvalidConfig)
	}
	return nil
}
