// Package event defines the domain events emitted by filter builder
// sessions and the interface used to publish them.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/tablefilter/internal/filter/payload"
)

// Event types.
const (
	TypeFilterApplied  = "filter.applied"
	TypeFilterRejected = "filter.rejected"
	TypeRowsLoaded     = "rows.loaded"
)

// Rejection reasons.
const (
	ReasonUnsupportedNot = "unsupported_not"
	ReasonEmptyFilter    = "empty_filter"
)

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	SessionID  string          `json:"session_id,omitempty"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// FilterAppliedPayload carries the payload sent to the query endpoint.
type FilterAppliedPayload struct {
	Request  payload.Payload `json:"request"`
	Filtered bool            `json:"filtered"`
}

func NewFilterApplied(sessionID string, p payload.Payload) DomainEvent {
	summary := "Filter applied"
	if p.Filter == nil {
		summary = "Unfiltered query applied"
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeFilterApplied,
		OccurredAt: time.Now(),
		SessionID:  sessionID,
		Summary:    summary,
		Payload:    mustJSON(FilterAppliedPayload{Request: p, Filtered: p.Filter != nil}),
	}
}

// FilterRejectedPayload explains why apply was blocked.
type FilterRejectedPayload struct {
	Reason     string   `json:"reason"`
	Conditions []string `json:"conditions,omitempty"`
}

func NewFilterRejected(sessionID, reason string, conditions []string) DomainEvent {
	summary := "Filter rejected: invalid or empty filter"
	if len(conditions) > 0 {
		summary = fmt.Sprintf("Filter rejected: NOT cannot be applied to %s", strings.Join(conditions, ", "))
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeFilterRejected,
		OccurredAt: time.Now(),
		SessionID:  sessionID,
		Summary:    summary,
		Payload:    mustJSON(FilterRejectedPayload{Reason: reason, Conditions: conditions}),
	}
}

// RowsLoadedPayload describes a completed row fetch.
type RowsLoadedPayload struct {
	Seq   uint64 `json:"seq"`
	Count int    `json:"count"`
	Stale bool   `json:"stale"`
}

func NewRowsLoaded(sessionID string, p RowsLoadedPayload) DomainEvent {
	summary := fmt.Sprintf("Loaded %d rows", p.Count)
	if p.Stale {
		summary = fmt.Sprintf("Discarded %d stale rows", p.Count)
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeRowsLoaded,
		OccurredAt: time.Now(),
		SessionID:  sessionID,
		Summary:    summary,
		Payload:    mustJSON(p),
	}
}
