// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/matthewbaird/tablefilter/internal/eventbus"
	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/handler"
	"github.com/matthewbaird/tablefilter/internal/metrics"
	"github.com/matthewbaird/tablefilter/internal/rows"
	"github.com/matthewbaird/tablefilter/internal/session"
	"github.com/matthewbaird/tablefilter/internal/wire"
)

// Config holds server configuration.
type Config struct {
	Port            int
	ShutdownTimeout time.Duration

	Catalog  *catalog.Catalog
	Store    rows.Store
	Sessions *session.Manager
	History  *eventbus.History
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// NewRouter registers every route on a chi router.
func NewRouter(cfg Config) chi.Router {
	r := chi.NewRouter()
	r.Use(Recovery(cfg.Logger))
	r.Use(Logging(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(Instrument(cfg.Metrics))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	// Query endpoint used by the row fetcher.
	dh := handler.NewDataHandler(cfg.Store, cfg.Logger)
	r.Post("/api/data", dh.Query)

	r.Route("/v1", func(r chi.Router) {
		ch := handler.NewCatalogHandler(cfg.Catalog)
		r.Get("/catalog/properties", ch.ListProperties)
		r.Get("/catalog/conditions", ch.ListConditions)

		fh := handler.NewFilterHandler(cfg.Catalog)
		r.Post("/filters/compile", fh.Compile)

		sh := handler.NewSessionHandler(cfg.Sessions, cfg.History)
		ws := wire.NewHandler(cfg.Sessions, cfg.Logger)
		r.Get("/events", sh.AllEvents)
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sh.Create)
			r.Get("/ws", ws.ServeHTTP)
			r.Get("/{id}", sh.Get)
			r.Delete("/{id}", sh.Delete)
			r.Get("/{id}/events", sh.Events)
		})
	})
	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled and the
// server has shut down.
func Run(ctx context.Context, cfg Config) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		cfg.Logger.Info().Str("addr", addr).Msg("starting server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cfg.Logger.Info().Dur("timeout", timeout).Msg("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
