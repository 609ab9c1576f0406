package journal

import (
	"context"
	"sync"
	"time"
)

const defaultMemoryCapacity = 10000

// MemoryJournal keeps the most recent events in memory.
type MemoryJournal struct {
	mu       sync.RWMutex
	events   []Event
	capacity int
}

func NewMemory(capacity int) *MemoryJournal {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryJournal{
		events:   make([]Event, 0, 64),
		capacity: capacity,
	}
}

func (m *MemoryJournal) LogEvent(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)
	if len(m.events) > m.capacity {
		m.events = m.events[len(m.events)-m.capacity:]
	}
	return nil
}

// GetEvents returns events of eventType with start <= time <= end, oldest
// first. A zero start or end leaves that side unbounded.
func (m *MemoryJournal) GetEvents(ctx context.Context, eventType string, start, end time.Time) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Event
	for _, e := range m.events {
		if e.Type != eventType {
			continue
		}
		if !start.IsZero() && e.Time.Before(start) {
			continue
		}
		if !end.IsZero() && e.Time.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MemoryJournal) Close() error { return nil }
