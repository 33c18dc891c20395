package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps history in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory history
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Append(ctx context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return nil
}

func (m *MemoryStore) ListByUser(ctx context.Context, userAccountID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]Entry, 0)
	for _, e := range m.entries {
		if e.UserAccountID == userAccountID {
			list = append(list, e)
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].RemovedAt.Equal(list[j].RemovedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].RemovedAt.After(list[j].RemovedAt)
	})
	return list, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryStore) MarkRestored(ctx context.Context, id string, at time.Time) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if e.Restored() {
		return nil, ErrAlreadyRestored
	}

	e.RestoredAt = &at
	m.entries[id] = e
	return &e, nil
}

func (m *MemoryStore) CheckHealth(ctx context.Context) error {
	return nil
}
