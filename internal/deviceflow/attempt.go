package deviceflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/wrale/friendsweep/internal/platform"
)

type poller interface {
	PollToken(ctx context.Context, deviceCode string) (*platform.PollResponse, error)
}

// Attempt is a single polling cycle for one device code.
//
// Idle -> Polling -> {Resolved | Expired | Denied | Failed | TimedOut}
//
// Only Polling loops. Once terminal, Run refuses to start again and a fresh
// device code is needed.
type Attempt struct {
	poller      poller
	deviceCode  string
	maxDuration time.Duration
	clock       Clock
	logger      *slog.Logger
	metrics     MetricsRecorder

	mu       sync.Mutex
	state    State
	interval time.Duration
}

// State returns the current state
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Interval returns the interval that will be waited before the next poll
func (a *Attempt) Interval() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interval
}

// Run polls the token endpoint until the attempt reaches a terminal state.
// Pending and slow_down answers never escape; transport failures, terminal
// answers, context cancellation and the deadline do.
func (a *Attempt) Run(ctx context.Context) (*Authorization, error) {
	a.mu.Lock()
	if a.state != StateIdle {
		a.mu.Unlock()
		return nil, ErrAttemptFinished
	}
	a.state = StatePolling
	a.mu.Unlock()

	started := a.clock.Now()
	deadline := started.Add(a.maxDuration)

	for a.clock.Now().Before(deadline) {
		resp, err := a.poller.PollToken(ctx, a.deviceCode)
		if err != nil {
			return nil, a.finish(ctx, StateFailed, started, err)
		}

		outcome := Classify(resp)
		a.metrics.ObservePoll(outcome.Kind.String())

		switch outcome.Kind {
		case OutcomeResolved:
			a.finish(ctx, StateResolved, started, nil)
			return outcome.Authorization, nil
		case OutcomeTerminal:
			return nil, a.finish(ctx, terminalState(outcome.Err), started, outcome.Err)
		case OutcomeSlowDown:
			a.slowDown()
		}

		wait := a.Interval()
		if remaining := deadline.Sub(a.clock.Now()); remaining < wait {
			wait = remaining
		}
		if wait <= 0 {
			break
		}

		a.logger.DebugContext(ctx, "authorization pending",
			slog.String("outcome", outcome.Kind.String()),
			slog.Duration("wait", wait))

		if err := a.clock.Sleep(ctx, wait); err != nil {
			return nil, a.finish(ctx, StateFailed, started, err)
		}
	}

	return nil, a.finish(ctx, StateTimedOut, started, ErrPollingTimedOut)
}

func (a *Attempt) slowDown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.interval >= MaxPollInterval {
		return
	}
	a.interval += SlowDownIncrement
	if a.interval > MaxPollInterval {
		a.interval = MaxPollInterval
	}
}

func (a *Attempt) finish(ctx context.Context, state State, started time.Time, err error) error {
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()

	elapsed := a.clock.Now().Sub(started)
	a.metrics.ObserveResolution(state.String(), elapsed)

	if err != nil {
		a.logger.WarnContext(ctx, "device authorization ended",
			slog.String("state", state.String()),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()))
	} else {
		a.logger.InfoContext(ctx, "device authorization resolved",
			slog.Duration("elapsed", elapsed))
	}

	return err
}

func terminalState(err error) State {
	switch {
	case errors.Is(err, ErrAuthorizationExpired):
		return StateExpired
	case errors.Is(err, ErrAuthorizationDenied):
		return StateDenied
	default:
		return StateFailed
	}
}
