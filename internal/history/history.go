// Package history keeps the audit trail of friend removals
package history

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no history entry has the requested id
	ErrNotFound = errors.New("history entry not found")

	// ErrAlreadyRestored indicates the entry was restored before
	ErrAlreadyRestored = errors.New("history entry already restored")
)

// Entry records one removed friendship. RestoredAt is set at most once.
type Entry struct {
	ID                string     `json:"id"`
	UserAccountID     string     `json:"userAccountId"`
	FriendAccountID   string     `json:"friendAccountId"`
	FriendDisplayName string     `json:"friendDisplayName"`
	RemovedAt         time.Time  `json:"removedAt"`
	RestoredAt        *time.Time `json:"restoredAt,omitempty"`
}

// Restored reports whether the entry has been marked restored
func (e *Entry) Restored() bool {
	return e.RestoredAt != nil
}

// Store is the append-only removal history. Entries are never deleted.
type Store interface {
	// Append writes all entries or none of them
	Append(ctx context.Context, entries []Entry) error

	// ListByUser returns a user's entries, most recent removal first
	ListByUser(ctx context.Context, userAccountID string) ([]Entry, error)

	// Get returns ErrNotFound when no entry has the id
	Get(ctx context.Context, id string) (*Entry, error)

	// MarkRestored sets RestoredAt on an unrestored entry and returns it.
	// It fails with ErrNotFound or ErrAlreadyRestored and then changes nothing.
	MarkRestored(ctx context.Context, id string, at time.Time) (*Entry, error)

	// CheckHealth verifies the storage backend is healthy
	CheckHealth(ctx context.Context) error
}
