// Package session manages builder session lifecycle. A session pairs one
// filter builder with the loader that fetches rows for its applied filters.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/matthewbaird/tablefilter/internal/event"
	"github.com/matthewbaird/tablefilter/internal/fetch"
	"github.com/matthewbaird/tablefilter/internal/filter/builder"
	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/filter/payload"
	"github.com/matthewbaird/tablefilter/internal/filter/tree"
	"github.com/matthewbaird/tablefilter/internal/rows"
)

// Session holds per-connection builder state.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	mu           sync.Mutex
	lastActiveAt time.Time

	Builder   *builder.Controller `json:"-"`
	Loader    *fetch.Loader       `json:"-"`
	publisher event.Publisher
}

// LastActiveAt returns the last activity timestamp.
func (s *Session) LastActiveAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActiveAt
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActiveAt = time.Now()
	s.mu.Unlock()
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return time.Since(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	return time.Since(s.LastActiveAt()) > timeout
}

// Apply applies the builder's filter and publishes the outcome.
func (s *Session) Apply(ctx context.Context) (payload.Payload, error) {
	s.Touch()
	p, err := s.Builder.Apply()
	if err != nil {
		var notErr *builder.UnsupportedNotError
		switch {
		case errors.As(err, &notErr):
			s.publish(ctx, event.NewFilterRejected(s.ID, event.ReasonUnsupportedNot, notErr.Conditions))
		case errors.Is(err, builder.ErrEmptyFilter):
			s.publish(ctx, event.NewFilterRejected(s.ID, event.ReasonEmptyFilter, nil))
		}
		return payload.Payload{}, err
	}
	s.publish(ctx, event.NewFilterApplied(s.ID, p))
	return p, nil
}

// BeginFetch reserves the load token for the next Fetch. Call it where the
// request is received, before handing the fetch to another goroutine.
func (s *Session) BeginFetch() uint64 {
	return s.Loader.Begin()
}

// Fetch loads rows for q under the token from BeginFetch. Results of a
// fetch whose token was overtaken by a later BeginFetch are marked stale.
func (s *Session) Fetch(ctx context.Context, seq uint64, q rows.Query) fetch.Result {
	res := s.Loader.Fetch(ctx, seq, q)
	s.publish(ctx, event.NewRowsLoaded(s.ID, event.RowsLoadedPayload{
		Seq:   res.Seq,
		Count: len(res.Rows),
		Stale: res.Stale,
	}))
	return res
}

func (s *Session) publish(ctx context.Context, evt event.DomainEvent) {
	if s.publisher != nil {
		s.publisher.Publish(ctx, evt)
	}
}

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration

	catalog   *catalog.Catalog
	fetcher   fetch.Fetcher
	publisher event.Publisher
	gauge     prometheus.Gauge
	logger    zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithPublisher sets the publisher that receives session events.
func WithPublisher(p event.Publisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithGauge reports the number of open sessions to g.
func WithGauge(g prometheus.Gauge) Option {
	return func(m *Manager) { m.gauge = g }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager creates a session manager with the given timeouts. Sessions
// edit filters over cat and load rows through fetcher.
func NewManager(cat *catalog.Catalog, fetcher fetch.Fetcher, maxAge, idleTimeout time.Duration, opts ...Option) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
		catalog:     cat,
		fetcher:     fetcher,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", "session_manager").Logger()
	return m
}

// Create creates a new session, optionally starting from initial.
func (m *Manager) Create(initial *tree.Group) *Session {
	now := time.Now()
	id := uuid.New().String()
	logger := m.logger.With().Str("session_id", id).Logger()

	opts := []builder.Option{builder.WithLogger(logger)}
	if initial != nil {
		opts = append(opts, builder.WithInitialTree(initial))
	}
	s := &Session{
		ID:           id,
		CreatedAt:    now,
		lastActiveAt: now,
		Builder:      builder.New(m.catalog, opts...),
		Loader:       fetch.NewLoader(m.fetcher, logger),
		publisher:    m.publisher,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.report(n)
	m.logger.Debug().Str("session_id", s.ID).Msg("session created")
	return s
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	return s
}

// Len returns the number of sessions held, including expired ones not yet
// cleaned up.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Remove deletes a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	m.report(n)
}

// Cleanup removes all expired and idle sessions and returns how many were
// removed.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	removed := 0
	for id, s := range m.sessions {
		if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
			delete(m.sessions, id)
			removed++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	m.report(n)
	if removed > 0 {
		m.logger.Debug().Int("removed", removed).Msg("sessions cleaned up")
	}
	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

func (m *Manager) report(n int) {
	if m.gauge != nil {
		m.gauge.Set(float64(n))
	}
}
