// Package deviceflow drives the client side of the OAuth device authorization
// grant against the platform's account service
package deviceflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wrale/friendsweep/internal/platform"
)

const (
	// DefaultPollInterval is used until the server asks to slow down
	DefaultPollInterval = 5 * time.Second

	// SlowDownIncrement is added to the interval on every slow_down answer
	SlowDownIncrement = 5 * time.Second

	// MaxPollInterval caps the interval growth
	MaxPollInterval = 60 * time.Second

	// DefaultMaxPollDuration bounds one attempt regardless of the
	// server-declared expiry
	DefaultMaxPollDuration = 10 * time.Minute
)

// Gateway is the part of the platform client the flow depends on
type Gateway interface {
	GetClientToken(ctx context.Context) (string, error)
	CreateDeviceCode(ctx context.Context, clientToken string) (*platform.DeviceAuthorization, error)
	PollToken(ctx context.Context, deviceCode string) (*platform.PollResponse, error)
}

// MetricsRecorder observes polling activity
type MetricsRecorder interface {
	ObservePoll(outcome string)
	ObserveResolution(state string, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObservePoll(string) {}

func (noopMetrics) ObserveResolution(string, time.Duration) {}

// Flow issues device codes and resolves them into user authorizations
type Flow struct {
	gateway         Gateway
	pollInterval    time.Duration
	maxPollDuration time.Duration
	clock           Clock
	logger          *slog.Logger
	metrics         MetricsRecorder
}

// NewFlow creates a device flow over the given gateway
func NewFlow(gateway Gateway, opts ...Option) *Flow {
	f := &Flow{
		gateway:         gateway,
		pollInterval:    DefaultPollInterval,
		maxPollDuration: DefaultMaxPollDuration,
		clock:           SystemClock(),
		logger:          slog.Default(),
		metrics:         noopMetrics{},
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.pollInterval <= 0 {
		f.pollInterval = DefaultPollInterval
	}
	if f.maxPollDuration <= 0 {
		f.maxPollDuration = DefaultMaxPollDuration
	}

	return f
}

// RequestDeviceCode obtains a client token and issues a new device code
func (f *Flow) RequestDeviceCode(ctx context.Context) (*platform.DeviceAuthorization, error) {
	clientToken, err := f.gateway.GetClientToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting client token: %w", err)
	}

	auth, err := f.gateway.CreateDeviceCode(ctx, clientToken)
	if err != nil {
		return nil, fmt.Errorf("creating device code: %w", err)
	}

	f.logger.InfoContext(ctx, "device code issued",
		slog.String("user_code", auth.UserCode),
		slog.Int("expires_in", auth.ExpiresIn))

	return auth, nil
}

// ResolveDeviceCode polls until the device code resolves, fails or the
// attempt deadline passes. It starts from the configured poll interval.
func (f *Flow) ResolveDeviceCode(ctx context.Context, deviceCode string) (*Authorization, error) {
	if deviceCode == "" {
		return nil, ErrInvalidDeviceCode
	}
	return f.NewAttempt(deviceCode, f.pollInterval).Run(ctx)
}

// ResolveAuthorization is ResolveDeviceCode starting from the interval the
// issuer suggested, when it suggested one
func (f *Flow) ResolveAuthorization(ctx context.Context, auth *platform.DeviceAuthorization) (*Authorization, error) {
	if auth == nil || auth.DeviceCode == "" {
		return nil, ErrInvalidDeviceCode
	}

	interval := f.pollInterval
	if auth.Interval > 0 {
		interval = time.Duration(auth.Interval) * time.Second
	}
	return f.NewAttempt(auth.DeviceCode, interval).Run(ctx)
}

// NewAttempt prepares one polling cycle. Each attempt owns its interval.
func (f *Flow) NewAttempt(deviceCode string, interval time.Duration) *Attempt {
	if interval <= 0 {
		interval = f.pollInterval
	}
	return &Attempt{
		poller:      f.gateway,
		deviceCode:  deviceCode,
		interval:    interval,
		maxDuration: f.maxPollDuration,
		clock:       f.clock,
		logger:      f.logger,
		metrics:     f.metrics,
	}
}
