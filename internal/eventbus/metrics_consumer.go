package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matthewbaird/tablefilter/internal/event"
	"github.com/matthewbaird/tablefilter/internal/metrics"
)

// MetricsConsumer turns domain events into Prometheus samples.
type MetricsConsumer struct {
	m *metrics.Metrics
}

func NewMetricsConsumer(m *metrics.Metrics) *MetricsConsumer {
	return &MetricsConsumer{m: m}
}

func (c *MetricsConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	switch evt.EventType {
	case event.TypeFilterApplied:
		c.m.RecordApply()
	case event.TypeFilterRejected:
		var p event.FilterRejectedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return fmt.Errorf("decoding %s payload: %w", evt.EventType, err)
		}
		c.m.RecordRejection(p.Reason)
	case event.TypeRowsLoaded:
		var p event.RowsLoadedPayload
		if err := json.Unmarshal(evt.Payload, &p); err != nil {
			return fmt.Errorf("decoding %s payload: %w", evt.EventType, err)
		}
		c.m.RecordRows(p.Count, p.Stale)
	}
	return nil
}
