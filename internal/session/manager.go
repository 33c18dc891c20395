package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wrale/friendsweep/internal/deviceflow"
)

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the time source used for expiry
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithIDGenerator replaces the random session identifier source
func WithIDGenerator(newID func() string) Option {
	return func(m *Manager) {
		m.newID = newID
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager owns the session lifecycle on top of a Store
type Manager struct {
	store  Store
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// NewManager creates a session manager
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create stores a fresh session for a resolved authorization
func (m *Manager) Create(ctx context.Context, auth *deviceflow.Authorization) (*Session, error) {
	sess := &Session{
		ID:          m.newID(),
		AccountID:   auth.AccountID,
		AccessToken: auth.AccessToken,
		DisplayName: auth.DisplayName,
		ExpiresAt:   m.now().Add(time.Duration(auth.ExpiresIn) * time.Second),
	}

	if err := m.store.Set(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	m.logger.InfoContext(ctx, "session created",
		slog.String("account_id", sess.AccountID),
		slog.Time("expires_at", sess.ExpiresAt))

	return sess, nil
}

// Get looks a session up without checking expiry. It returns nil, nil when
// absent.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, nil
	}
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return sess, nil
}

// Validate returns a live session. An expired session is deleted before
// ErrSessionExpired is returned.
func (m *Manager) Validate(ctx context.Context, id string) (*Session, error) {
	sess, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrUnauthenticated
	}

	if sess.ExpiredAt(m.now()) {
		if err := m.store.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("evicting expired session: %w", err)
		}
		m.logger.InfoContext(ctx, "session expired", slog.String("account_id", sess.AccountID))
		return nil, ErrSessionExpired
	}

	return sess, nil
}

// Destroy removes a session. It is safe to call for an absent id.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}
