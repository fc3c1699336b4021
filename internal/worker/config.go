package worker

import (
	"fmt"
	"time"
)

// Config holds the configuration for the periodic task worker.
type Config struct {
	// Interval is how often every registered task runs.
	// Default: 1 minute
	Interval time.Duration

	// TaskTimeout is the maximum time a single task run is allowed.
	// If a run exceeds this timeout, its context is canceled.
	// Default: 30 seconds
	TaskTimeout time.Duration

	// ShutdownTimeout is how long Stop waits for a running task to finish.
	// Default: 10 seconds
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Interval:        time.Minute,
		TaskTimeout:     30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate checks if the configuration is valid.
// Returns an error if any values are invalid.
func (c Config) Validate() error {
	if c.Interval < 10*time.Millisecond {
		return fmt.Errorf("interval must be at least 10ms, got %v", c.Interval)
	}
	if c.TaskTimeout < 10*time.Millisecond {
		return fmt.Errorf("task timeout must be at least 10ms, got %v", c.TaskTimeout)
	}
	if c.ShutdownTimeout < 10*time.Millisecond {
		return fmt.Errorf("shutdown timeout must be at least 10ms, got %v", c.ShutdownTimeout)
	}
	return nil
}
