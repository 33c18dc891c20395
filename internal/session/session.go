// Package session binds an opaque identifier to a resolved platform
// authorization for a bounded lifetime
package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnauthenticated indicates there is no session for the identifier
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrSessionExpired indicates the session outlived its token
	ErrSessionExpired = errors.New("session expired")
)

// Session is one authenticated user's working context. It is replaced,
// never edited.
type Session struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	AccessToken string    `json:"access_token"`
	DisplayName string    `json:"display_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the session is past its expiry at t
func (s *Session) ExpiredAt(t time.Time) bool {
	return t.After(s.ExpiresAt)
}

// Store is the key-value capability sessions are kept in
type Store interface {
	// Get returns nil, nil when no session exists for id
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores s under s.ID, replacing any previous value
	Set(ctx context.Context, s *Session) error

	// Delete removes the session. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// CheckHealth verifies the storage backend is healthy
	CheckHealth(ctx context.Context) error
}
