// Package app assembles the scam-alert components from configuration. Both
// the HTTP service and the operator CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/classifier"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/drain"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/events"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/pipeline"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue/memstore"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue/sqlstore"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/upstream/gemini"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/redis"
)

const pingTimeout = 2 * time.Second

// App holds the wired components. Optional parts (Producer, redis) are nil
// when disabled in config.
type App struct {
	Config   *config.Config
	Metrics  *metrics.Metrics
	Store    queue.Store
	Pipeline *pipeline.Pipeline
	Drain    *drain.Loop
	Health   *health.Checker
	Producer *kafka.Producer

	redis   *redis.Client
	closers []func() error
	logger  *slog.Logger
}

// New connects to the configured backends and wires the pipeline and drain
// loop. reg receives the metric collectors; nil means the default registerer.
func New(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*App, error) {
	a := &App{
		Config:  cfg,
		Metrics: metrics.New(reg),
		Health:  health.NewChecker(),
		logger:  slog.Default().With("component", "app"),
	}

	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)
	a.Health.Register("store", health.PingCheck("store", pingTimeout, store.Ping))

	var gen pipeline.Generator
	if cfg.Upstream.APIKey != "" {
		gen = gemini.New(cfg.Upstream, gemini.WithMetrics(a.Metrics))
	} else {
		a.logger.Warn("no upstream API key configured, refills will be empty")
	}
	a.Health.Register("upstream", upstreamCheck(cfg.Upstream))

	a.Pipeline = pipeline.New(gen, cfg.Pipeline, classifier.New(cfg.Classifier),
		pipeline.WithMetrics(a.Metrics))

	opts := []drain.Option{drain.WithMetrics(a.Metrics)}

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.redis = rc
		a.closers = append(a.closers, rc.Close)
		a.Health.Register("redis", health.PingCheck("redis", pingTimeout, rc.Ping))
		opts = append(opts, drain.WithLocker(rc.NewLock(cfg.Redis.LockKey, cfg.Redis.LockTTL)))
		a.logger.Info("drain lock enabled", "key", cfg.Redis.LockKey, "ttl", cfg.Redis.LockTTL)
	}

	if cfg.Kafka.Enabled {
		a.Producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AlertsPublished)
		a.closers = append(a.closers, a.Producer.Close)
		opts = append(opts, drain.WithEvents(events.NewPublisher(a.Producer)))
		a.logger.Info("alert events enabled", "topic", cfg.Kafka.Topics.AlertsPublished)
	}

	a.Drain = drain.New(a.Store, a.Pipeline, cfg.Drain, opts...)
	return a, nil
}

// OpenStore opens the configured store and applies the schema for SQL
// backends.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (queue.Store, error) {
	if cfg.Driver == config.DriverMemory {
		return memstore.New(), nil
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Driver, err)
	}
	store := sqlstore.New(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// RefreshConsumer returns a consumer that runs a drain cycle per refresh
// request, or nil when kafka is disabled.
func (a *App) RefreshConsumer() *kafka.Consumer {
	if !a.Config.Kafka.Enabled {
		return nil
	}
	c := kafka.NewConsumer(a.Config.Kafka, a.Config.Kafka.Topics.RefreshRequests,
		events.HandleRefreshRequest(a.Drain))
	a.closers = append(a.closers, c.Close)
	return c
}

// Close releases every backend in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func upstreamCheck(cfg config.UpstreamConfig) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		if cfg.APIKey == "" {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "no API key configured"}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	}
}
