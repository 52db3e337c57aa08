package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/matthewbaird/tablefilter/internal/config"
	"github.com/matthewbaird/tablefilter/internal/eventbus"
	"github.com/matthewbaird/tablefilter/internal/fetch"
	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/metrics"
	"github.com/matthewbaird/tablefilter/internal/rows"
	"github.com/matthewbaird/tablefilter/internal/server"
	"github.com/matthewbaird/tablefilter/internal/session"

	_ "modernc.org/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("loading config")
	}
	logger := newLogger(cfg.Log)

	db, err := sql.Open("sqlite", cfg.Database.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("opening database")
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	cat := catalog.Default()
	store := rows.NewSQLiteStore(db, cat)
	if err := store.CreateTable(ctx); err != nil {
		logger.Fatal().Err(err).Msg("creating records table")
	}
	if cfg.Database.Seed {
		if err := rows.Seed(ctx, store, logger); err != nil {
			logger.Fatal().Err(err).Msg("seeding records")
		}
	}

	var fetcher fetch.Fetcher
	if cfg.Upstream.URL != "" {
		fetcher = fetch.NewClient(cfg.Upstream.URL, fetch.WithTimeout(cfg.Upstream.Timeout), fetch.WithLogger(logger))
		logger.Info().Str("url", cfg.Upstream.URL).Msg("fetching rows from upstream")
	} else {
		fetcher = fetch.NewStoreFetcher(store, logger)
	}

	bus := eventbus.New(cfg.Events.Buffer, logger)
	history := eventbus.NewHistory(cfg.Events.History)
	bus.Subscribe("log", eventbus.NewLogConsumer(logger))
	bus.Subscribe("history", history)

	sessionOpts := []session.Option{session.WithPublisher(bus), session.WithLogger(logger)}
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if m, err = metrics.New(reg); err != nil {
			logger.Fatal().Err(err).Msg("registering metrics")
		}
		bus.Subscribe("metrics", eventbus.NewMetricsConsumer(m))
		sessionOpts = append(sessionOpts, session.WithGauge(m.ActiveSessions))
	}
	bus.Start(ctx)
	defer bus.Stop()

	sessions := session.NewManager(cat, fetcher, cfg.Session.MaxAge, cfg.Session.IdleTimeout, sessionOpts...)
	interval := cfg.Session.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	go sessions.Run(ctx, interval)

	if err := server.Run(ctx, server.Config{
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Catalog:         cat,
		Store:           store,
		Sessions:        sessions,
		History:         history,
		Metrics:         m,
		Logger:          logger,
	}); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
