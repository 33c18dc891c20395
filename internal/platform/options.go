package platform

import (
	"context"
	"log/slog"
	"net/http"
)

// Option configures the platform client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
// Its own Timeout is left untouched; every call is still bounded by the
// configured per-call timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for upstream failures
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRevokeFailureHook sets the side channel that observes session
// revocation failures. KillSession itself never returns them.
func WithRevokeFailureHook(hook func(ctx context.Context, err error)) Option {
	return func(c *Client) {
		c.onRevokeFailure = hook
	}
}
