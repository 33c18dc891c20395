// Package friends coordinates friends list operations for an authenticated
// session: listing, bulk removal with an audit trail, restoration and logout
package friends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wrale/friendsweep/internal/history"
	"github.com/wrale/friendsweep/internal/platform"
	"github.com/wrale/friendsweep/internal/session"
)

// ErrNoFriendIDs indicates a removal request without any friend id
var ErrNoFriendIDs = errors.New("at least one friend id is required")

// Sessions is the part of the session manager the coordinator uses
type Sessions interface {
	Get(ctx context.Context, id string) (*session.Session, error)
	Validate(ctx context.Context, id string) (*session.Session, error)
	Destroy(ctx context.Context, id string) error
}

// Gateway is the part of the platform client the coordinator uses
type Gateway interface {
	GetFriends(ctx context.Context, accountID, accessToken string) (*platform.FriendsSummary, error)
	RemoveFriend(ctx context.Context, accountID, friendID, accessToken string) error
	KillSession(ctx context.Context, accessToken string)
}

// MetricsRecorder observes coordinator outcomes
type MetricsRecorder interface {
	ObserveRemoval(outcome string, friends int)
	ObserveRestore(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRemoval(string, int) {}

func (noopMetrics) ObserveRestore(string) {}

// Coordinator runs friends operations on behalf of sessions. The access
// token is borrowed from the session for one call and never retained.
type Coordinator struct {
	sessions    Sessions
	gateway     Gateway
	history     history.Store
	now         func() time.Time
	newID       func() string
	logger      *slog.Logger
	metrics     MetricsRecorder
	concurrency int
}

// NewCoordinator creates a coordinator
func NewCoordinator(sessions Sessions, gateway Gateway, store history.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		sessions: sessions,
		gateway:  gateway,
		history:  store,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   slog.Default(),
		metrics:  noopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListFriends returns the full friends summary of the session's account
func (c *Coordinator) ListFriends(ctx context.Context, sessionID string) (*platform.FriendsSummary, error) {
	sess, err := c.sessions.Validate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return c.gateway.GetFriends(ctx, sess.AccountID, sess.AccessToken)
}

// RemoveMany removes every friend concurrently and waits for all calls.
// Any failure fails the whole batch and no history is written, even though
// some removals may already have taken effect upstream. On full success one
// history entry per friend is appended in a single write.
func (c *Coordinator) RemoveMany(ctx context.Context, sessionID string, friendIDs []string) (int, error) {
	sess, err := c.sessions.Validate(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	ids := uniqueIDs(friendIDs)
	if len(ids) == 0 {
		return 0, ErrNoFriendIDs
	}

	names := c.displayNames(ctx, sess)

	var g errgroup.Group
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for _, id := range ids {
		g.Go(func() error {
			return c.gateway.RemoveFriend(ctx, sess.AccountID, id, sess.AccessToken)
		})
	}
	if err := g.Wait(); err != nil {
		c.metrics.ObserveRemoval("failed", len(ids))
		c.logger.ErrorContext(ctx, "bulk removal failed",
			slog.String("account_id", sess.AccountID),
			slog.Int("requested", len(ids)),
			slog.String("error", err.Error()))
		return 0, err
	}

	removedAt := c.now().UTC()
	entries := make([]history.Entry, 0, len(ids))
	for _, id := range ids {
		name := names[id]
		if name == "" {
			name = id
		}
		entries = append(entries, history.Entry{
			ID:                c.newID(),
			UserAccountID:     sess.AccountID,
			FriendAccountID:   id,
			FriendDisplayName: name,
			RemovedAt:         removedAt,
		})
	}

	if err := c.history.Append(ctx, entries); err != nil {
		c.metrics.ObserveRemoval("unrecorded", len(ids))
		return 0, fmt.Errorf("recording removals: %w", err)
	}

	c.metrics.ObserveRemoval("removed", len(ids))
	c.logger.InfoContext(ctx, "friends removed",
		slog.String("account_id", sess.AccountID),
		slog.Int("removed", len(ids)))

	return len(ids), nil
}

// displayNames is best-effort; a failed lookup leaves names empty
func (c *Coordinator) displayNames(ctx context.Context, sess *session.Session) map[string]string {
	summary, err := c.gateway.GetFriends(ctx, sess.AccountID, sess.AccessToken)
	if err != nil {
		c.logger.WarnContext(ctx, "display name lookup failed",
			slog.String("account_id", sess.AccountID),
			slog.String("error", err.Error()))
		return nil
	}
	return summary.DisplayNames()
}

// Restore marks a removal as restored. Only the local record changes: the
// platform has no call that re-adds a friend.
func (c *Coordinator) Restore(ctx context.Context, historyID string) (*history.Entry, error) {
	entry, err := c.history.MarkRestored(ctx, historyID, c.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, history.ErrNotFound):
			c.metrics.ObserveRestore("not_found")
		case errors.Is(err, history.ErrAlreadyRestored):
			c.metrics.ObserveRestore("already_restored")
		default:
			c.metrics.ObserveRestore("failed")
		}
		return nil, err
	}

	c.metrics.ObserveRestore("restored")
	return entry, nil
}

// RestoreOwned is Restore limited to entries of the session's account.
// Entries of other accounts are reported as not found.
func (c *Coordinator) RestoreOwned(ctx context.Context, sessionID, historyID string) (*history.Entry, error) {
	sess, err := c.sessions.Validate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	entry, err := c.history.Get(ctx, historyID)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			c.metrics.ObserveRestore("not_found")
		}
		return nil, err
	}
	if entry.UserAccountID != sess.AccountID {
		c.metrics.ObserveRestore("not_found")
		return nil, history.ErrNotFound
	}

	return c.Restore(ctx, historyID)
}

// History lists the session account's removals, most recent first
func (c *Coordinator) History(ctx context.Context, sessionID string) ([]history.Entry, error) {
	sess, err := c.sessions.Validate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return c.history.ListByUser(ctx, sess.AccountID)
}

// Logout revokes the platform session best-effort and destroys the local
// session whatever the revocation outcome. Logging out without a session
// succeeds.
func (c *Coordinator) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	sess, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		c.logger.WarnContext(ctx, "session lookup failed during logout", slog.String("error", err.Error()))
	} else if sess != nil {
		c.gateway.KillSession(ctx, sess.AccessToken)
	}

	return c.sessions.Destroy(ctx, sessionID)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
