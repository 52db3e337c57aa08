package eventbus

import (
	"context"
	"sync"

	"github.com/matthewbaird/tablefilter/internal/event"
)

// History keeps the most recent events in memory, newest last.
type History struct {
	mu     sync.RWMutex
	limit  int
	events []event.DomainEvent
}

// NewHistory creates a history holding at most limit events.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 100
	}
	return &History{limit: limit}
}

func (h *History) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, evt)
	if over := len(h.events) - h.limit; over > 0 {
		h.events = append(h.events[:0:0], h.events[over:]...)
	}
	return nil
}

// Recent returns up to n events, newest first, optionally restricted to
// one session. n <= 0 returns everything held.
func (h *History) Recent(sessionID string, n int) []event.DomainEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]event.DomainEvent, 0)
	for i := len(h.events) - 1; i >= 0; i-- {
		if n > 0 && len(out) == n {
			break
		}
		if sessionID != "" && h.events[i].SessionID != sessionID {
			continue
		}
		out = append(out, h.events[i])
	}
	return out
}
