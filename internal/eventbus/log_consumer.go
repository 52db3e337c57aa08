package eventbus

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/matthewbaird/tablefilter/internal/event"
)

// LogConsumer logs all domain events.
type LogConsumer struct {
	logger zerolog.Logger
}

func NewLogConsumer(logger zerolog.Logger) *LogConsumer {
	return &LogConsumer{logger: logger.With().Str("component", "event_log").Logger()}
}

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	c.logger.Info().
		Str("event_type", evt.EventType).
		Str("event_id", evt.ID).
		Str("session_id", evt.SessionID).
		RawJSON("payload", evt.Payload).
		Msg(evt.Summary)
	return nil
}
