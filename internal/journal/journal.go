// Package journal records what the bot did. It is an audit trail only: the
// bot never reads it back to restore state.
package journal

import (
	"context"
	"time"
)

// Event types.
const (
	TypeTrade = "trade"
	TypeError = "error"
)

// Event represents a journaled event.
type Event struct {
	Time        time.Time      `json:"time"`
	Type        string         `json:"type"` // e.g., "trade", "error"
	Description string         `json:"description"`
	Data        map[string]any `json:"data,omitempty"`
}

// Journaler interface for journaling events.
type Journaler interface {
	LogEvent(ctx context.Context, event Event) error
	GetEvents(ctx context.Context, eventType string, start, end time.Time) ([]Event, error)
	Close() error
}
