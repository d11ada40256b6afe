package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hustlexp/insight/internal/config"
	"github.com/hustlexp/insight/internal/experiments"
	"github.com/hustlexp/insight/internal/feedback"
	"github.com/hustlexp/insight/internal/learning"
	"github.com/hustlexp/insight/internal/observability"
	"github.com/hustlexp/insight/internal/profile"
	"github.com/hustlexp/insight/internal/ratelimit"
	"github.com/hustlexp/insight/internal/storage"
)

// app wires the full client from configuration. Every service is constructed
// exactly once here and handed to its callers by reference.
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	metrics     *observability.Metrics
	tracer      *observability.Tracer
	client      *feedback.Client
	experiments *experiments.Service
	fetcher     *profile.Fetcher
	facade      *learning.Facade

	shutdownTracer func(context.Context) error
	closers        []func() error
}

func newApp(configPath string) (*app, error) {
	cfg := config.Default()
	if path := resolveConfigPath(configPath); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	logger := observability.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	tracer, shutdownTracer := observability.NewTracer(cfg.Tracing)

	a := &app{
		cfg:            cfg,
		logger:         logger,
		metrics:        metrics,
		tracer:         tracer,
		shutdownTracer: shutdownTracer,
	}

	catalog := experiments.DefaultCatalog()
	if cfg.Experiments.CatalogPath != "" {
		loaded, err := experiments.LoadCatalog(cfg.Experiments.CatalogPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load experiment catalog: %w", err)
		}
		catalog = loaded
	}

	kv, err := storage.NewSQLiteKV(storage.SQLiteConfig{Path: cfg.Experiments.StatePath})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open assignment store: %w", err)
	}
	a.closers = append(a.closers, kv.Close)
	assignments := experiments.NewAssignmentStore(kv,
		experiments.WithStoreLogger(logger.With("component", "experiments.store")),
	)

	queueStore, err := feedback.NewSQLiteStore(feedback.SQLiteStoreConfig{Path: cfg.Queue.Path})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open retry queue: %w", err)
	}
	a.closers = append(a.closers, queueStore.Close)

	clientOpts := []feedback.ClientOption{
		feedback.WithClientLogger(logger.With("component", "feedback.client")),
		feedback.WithClientMetrics(metrics),
		feedback.WithClientTracer(tracer),
		feedback.WithQueue(feedback.WithFlushInterval(cfg.Queue.FlushInterval)),
	}
	if cfg.RateLimit.Enabled {
		clientOpts = append(clientOpts, feedback.WithLimiter(ratelimit.NewBucket(cfg.RateLimit)))
	}
	a.client = feedback.NewClient(cfg.API.BaseURL, queueStore, clientOpts...)

	a.experiments = experiments.NewService(catalog, assignments,
		experiments.WithTracker(a.client),
		experiments.WithLogger(logger.With("component", "experiments")),
		experiments.WithMetrics(metrics),
	)

	a.fetcher = profile.NewFetcher(cfg.API.BaseURL,
		profile.WithLogger(logger.With("component", "profile")),
		profile.WithMetrics(metrics),
		profile.WithTracer(tracer),
	)

	a.facade = learning.New(a.client, a.experiments,
		learning.WithLogger(logger.With("component", "learning")),
	)

	return a, nil
}

// Close releases stores and flushes the tracer. Safe to call after a partial
// construction failure.
func (a *app) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(context.Background()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
