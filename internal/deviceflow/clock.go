package deviceflow

import (
	"context"
	"time"
)

// Clock supplies the time source and the sleep primitive used between polls
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, whichever comes first
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

// SystemClock returns a Clock backed by the wall clock
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
