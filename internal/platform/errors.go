package platform

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// maxErrorBody bounds how much of an upstream body is echoed in error messages
const maxErrorBody = 256

// Configuration errors returned by NewClient
var (
	ErrMissingClientID     = errors.New("client id is required")
	ErrMissingClientSecret = errors.New("client secret is required")
	ErrInvalidServiceURL   = errors.New("invalid service URL")
)

// TransportError reports a call that never produced an HTTP response:
// a timeout, a refused connection or an unreadable body.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call was cut off by its deadline
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// UpstreamError reports a non-2xx answer from the platform
type UpstreamError struct {
	Op     string
	Target string // Resource the call acted on, e.g. a friend account id
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	if e.Target != "" {
		return fmt.Sprintf("%s %s: upstream status %d: %s", e.Op, e.Target, e.Status, body)
	}
	return fmt.Sprintf("%s: upstream status %d: %s", e.Op, e.Status, body)
}
