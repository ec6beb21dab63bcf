package deflow

import "time"

// Config holds configuration for the dispatch sweep loop.
type Config struct {
	// TickInterval is how often the dispatcher scans for due schedules.
	TickInterval time.Duration

	// MaxConcurrentFires bounds the number of trigger invocations in
	// flight at once.
	MaxConcurrentFires int

	// ShutdownTimeout is the maximum time to wait for in-flight fires
	// during graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval:       1 * time.Second,
		MaxConcurrentFires: 16,
		ShutdownTimeout:    30 * time.Second,
	}
}
