package deviceflow

import (
	"log/slog"
	"time"
)

// Option configures a Flow
type Option func(*Flow)

// WithPollInterval sets the interval used when the issuer supplies none
func WithPollInterval(d time.Duration) Option {
	return func(f *Flow) {
		f.pollInterval = d
	}
}

// WithMaxPollDuration sets the client-side polling deadline of each attempt
func WithMaxPollDuration(d time.Duration) Option {
	return func(f *Flow) {
		f.maxPollDuration = d
	}
}

// WithClock replaces the wall clock, mainly for tests
func WithClock(c Clock) Option {
	return func(f *Flow) {
		f.clock = c
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		f.logger = logger
	}
}

// WithMetrics sets the recorder for poll and resolution events
func WithMetrics(m MetricsRecorder) Option {
	return func(f *Flow) {
		f.metrics = m
	}
}
