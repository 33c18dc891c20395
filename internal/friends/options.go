package friends

import (
	"log/slog"
	"time"
)

// Option configures a Coordinator
type Option func(*Coordinator)

// WithClock sets the time source for removal and restore timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithIDGenerator replaces the history entry id source
func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) {
		c.newID = newID
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetrics sets the outcome recorder
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithConcurrency bounds the number of removal calls in flight. Zero or
// less means unbounded.
func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		c.concurrency = n
	}
}
