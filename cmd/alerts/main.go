// Command alerts starts the scam-alert HTTP service.
//
// The service serves published alerts via GET /api/v1/scam-alerts, runs a
// drain cycle on POST /api/v1/scam-alerts/refresh and on a fixed schedule,
// prunes expired alerts, and (when kafka is enabled) consumes refresh
// requests and announces every published alert.
//
// Usage:
//
//	go run ./cmd/alerts [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/handler"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/router"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/scheduler"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/app"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/ratelimit"
)

// main loads configuration, wires the store, pipeline and drain loop, starts
// the scheduler, metrics server and refresh consumer, and serves HTTP until
// SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting scam alert service",
		"port", cfg.Server.Port,
		"store", cfg.Database.Driver,
		"queries", len(cfg.Pipeline.Queries),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		slog.Error("failed to initialise service", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(a.Drain, a.Store, cfg.Scheduler, cfg.Retention, a.Metrics)
		sched.Start(ctx)
		defer sched.Close()
	}

	if consumer := a.RefreshConsumer(); consumer != nil {
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("refresh consumer stopped", "error", err)
			}
		}()
		slog.Info("refresh consumer started", "topic", cfg.Kafka.Topics.RefreshRequests)
	}

	limiter := ratelimit.New(cfg.API.RefreshRatePerMinute, time.Minute)
	go limiter.RunCleanup(ctx, 5*time.Minute)

	h := handler.New(a.Store, a.Drain, cfg.API)
	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.New(router.Deps{
			Handler:        h,
			Health:         a.Health,
			Metrics:        a.Metrics,
			Limiter:        limiter,
			RequestTimeout: cfg.API.RequestTimeout,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()
	slog.Info("scam alert service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("scam alert service stopped")
}
