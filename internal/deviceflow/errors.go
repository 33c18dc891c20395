package deviceflow

import "errors"

// Errors produced while resolving a device authorization
var (
	// ErrInvalidDeviceCode indicates a missing device code
	ErrInvalidDeviceCode = errors.New("invalid device code")

	// ErrAuthorizationPending indicates the user has not completed the
	// out-of-band step yet. Absorbed by Attempt.Run.
	ErrAuthorizationPending = errors.New("authorization pending")

	// ErrSlowDown indicates the server asked for a longer poll interval.
	// Absorbed by Attempt.Run.
	ErrSlowDown = errors.New("polling too frequently")

	// ErrAuthorizationDenied indicates the user declined the request
	ErrAuthorizationDenied = errors.New("authorization denied")

	// ErrAuthorizationExpired indicates the device code expired server-side
	ErrAuthorizationExpired = errors.New("device code expired")

	// ErrPollingTimedOut indicates the client-side polling deadline passed
	ErrPollingTimedOut = errors.New("polling timed out")

	// ErrInvalidTokenResponse indicates a 2xx token response without a usable token
	ErrInvalidTokenResponse = errors.New("invalid token response")

	// ErrAttemptFinished is returned when Run is called on an attempt that
	// already started
	ErrAttemptFinished = errors.New("authorization attempt already run")
)
