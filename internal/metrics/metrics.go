// Package metrics exposes Prometheus metrics for the filter service.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tablefilter"

// Metrics holds every collector the service records to.
type Metrics struct {
	registry *prometheus.Registry

	FilterApplies    prometheus.Counter
	FilterRejections *prometheus.CounterVec
	RowsFetched      *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
	RequestDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: reg,
		FilterApplies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_applies_total",
			Help:      "Filters successfully applied.",
		}),
		FilterRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_rejections_total",
			Help:      "Apply attempts rejected, by reason.",
		}, []string{"reason"}),
		RowsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_fetched_total",
			Help:      "Rows returned by fetches, split by whether the result was stale.",
		}, []string{"stale"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Open builder sessions.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	for _, c := range []prometheus.Collector{
		m.FilterApplies, m.FilterRejections, m.RowsFetched, m.ActiveSessions, m.RequestDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering collector: %w", err)
		}
	}
	return m, nil
}

// RecordApply counts a successful apply.
func (m *Metrics) RecordApply() { m.FilterApplies.Inc() }

// RecordRejection counts a rejected apply.
func (m *Metrics) RecordRejection(reason string) {
	m.FilterRejections.WithLabelValues(reason).Inc()
}

// RecordRows adds n fetched rows.
func (m *Metrics) RecordRows(n int, stale bool) {
	m.RowsFetched.WithLabelValues(strconv.FormatBool(stale)).Add(float64(n))
}

// ObserveRequest records the latency of an HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
