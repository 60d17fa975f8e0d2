package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store is the pluggable event log backend. All methods must be safe
// for concurrent use; Log calls from multiple executors are serialized
// by the implementation so the log preserves a total append order.
type Store interface {
	// Log appends ev to the log.
	Log(ctx context.Context, ev Event) error
	// Get returns events matching the given filters, ordered by
	// timestamp ascending. A nil/zero filter field matches anything.
	Get(ctx context.Context, filter Filter) ([]Event, error)
	// Latest returns the most recent event for taskName, optionally
	// narrowed to a single action, or ok=false if none exists.
	Latest(ctx context.Context, taskName string, action Action) (ev Event, ok bool, err error)
	// Close releases any resources (connections, files) held by the
	// store.
	Close() error
}

// Filter narrows a Get query. Zero values are wildcards.
type Filter struct {
	TaskName string
	Action   Action
	After    *time.Time
	Before   *time.Time
}

func (f Filter) matches(ev Event) bool {
	if f.TaskName != "" && ev.TaskName != f.TaskName {
		return false
	}
	if f.Action != "" && ev.Action != f.Action {
		return false
	}
	if f.After != nil && ev.Timestamp.Before(*f.After) {
		return false
	}
	if f.Before != nil && !ev.Timestamp.Before(*f.Before) {
		return false
	}
	return true
}

// MemoryStore is the default in-process event log: an ordered slice
// protected by a mutex, so a single logical writer's appends are
// totally ordered even when called from multiple goroutines (one per
// executing task).
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Log(ctx context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, filter Filter) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, ev := range m.events {
		if filter.matches(ev) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *MemoryStore) Latest(ctx context.Context, taskName string, action Action) (Event, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest Event
	found := false
	for _, ev := range m.events {
		if ev.TaskName != taskName {
			continue
		}
		if action != "" && ev.Action != action {
			continue
		}
		if !found || ev.Timestamp.After(latest.Timestamp) {
			latest = ev
			found = true
		}
	}
	return latest, found, nil
}

func (m *MemoryStore) Close() error { return nil }
