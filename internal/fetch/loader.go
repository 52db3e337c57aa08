package fetch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/matthewbaird/tablefilter/internal/rows"
)

// Result is the outcome of one Load.
type Result struct {
	Seq   uint64
	Rows  []rows.Row
	Stale bool // a later Load started before this one finished
}

// Loader holds the rows currently displayed and serializes overlapping
// loads: the most recently started load wins, results of older loads are
// discarded. In-flight requests are not cancelled.
type Loader struct {
	fetcher Fetcher
	logger  zerolog.Logger

	mu   sync.Mutex
	seq  uint64 // latest token issued
	done uint64 // token of the rows currently held
	rows []rows.Row
}

// NewLoader creates a loader over fetcher.
func NewLoader(fetcher Fetcher, logger zerolog.Logger) *Loader {
	return &Loader{
		fetcher: fetcher,
		logger:  logger.With().Str("component", "loader").Logger(),
		rows:    []rows.Row{},
	}
}

// Begin reserves a sequence token and marks the loader as loading.
func (l *Loader) Begin() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	return l.seq
}

// Finish completes the load with token seq. The rows are kept only if no
// later load has begun.
func (l *Loader) Finish(seq uint64, fetched []rows.Row) Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		l.logger.Debug().Uint64("seq", seq).Uint64("latest", l.seq).Msg("discarding stale rows")
		return Result{Seq: seq, Rows: fetched, Stale: true}
	}
	l.rows = fetched
	l.done = seq
	return Result{Seq: seq, Rows: fetched}
}

// Fetch fetches rows for q and completes the load with token seq, which
// must come from Begin. Overlapping loads are ordered by their Begin calls,
// so a caller that fetches in the background reserves the token first.
func (l *Loader) Fetch(ctx context.Context, seq uint64, q rows.Query) Result {
	return l.Finish(seq, l.fetcher.FetchRows(ctx, q))
}

// Load fetches rows for q and blocks until the fetch completes.
func (l *Loader) Load(ctx context.Context, q rows.Query) Result {
	return l.Fetch(ctx, l.Begin(), q)
}

// Loading reports whether the latest load is still outstanding.
func (l *Loader) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done != l.seq
}

// Rows returns the rows of the latest completed load.
func (l *Loader) Rows() []rows.Row {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows
}
