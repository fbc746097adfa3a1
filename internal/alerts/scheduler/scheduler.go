// Package scheduler runs the drain cycle and the retention prune on a fixed
// interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/drain"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/metrics"
)

// Runner runs one drain cycle.
type Runner interface {
	Run(ctx context.Context) (drain.Result, error)
}

// Pruner deletes public records older than a cutoff.
type Pruner interface {
	PrunePublic(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler triggers a drain cycle followed by a retention prune every
// interval. Errors are logged and never stop the loop.
type Scheduler struct {
	runner    Runner
	pruner    Pruner
	cfg       config.SchedulerConfig
	retention config.RetentionConfig
	metrics   *metrics.Metrics
	now       func() time.Time
	logger    *slog.Logger
	done      chan struct{}
}

// New creates a Scheduler. pruner may be nil when retention is disabled.
func New(runner Runner, pruner Pruner, cfg config.SchedulerConfig, retention config.RetentionConfig, m *metrics.Metrics) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 6000 * time.Second
	}
	return &Scheduler{
		runner:    runner,
		pruner:    pruner,
		cfg:       cfg,
		retention: retention,
		metrics:   m,
		now:       time.Now,
		logger:    slog.Default().With("component", "scheduler"),
		done:      make(chan struct{}),
	}
}

// Start launches the background loop. It returns immediately; the loop ends
// when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		if s.cfg.RunOnStart {
			s.tick(ctx)
		}
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.tick(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("scheduler started",
		"interval", s.cfg.Interval,
		"run_on_start", s.cfg.RunOnStart,
		"retention", s.retention.Enabled,
	)
}

// Close waits for the background loop to finish.
func (s *Scheduler) Close() {
	<-s.done
}

func (s *Scheduler) tick(ctx context.Context) {
	res, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, apperrors.ErrDrainInProgress):
		s.logger.Info("drain cycle skipped, another cycle is running")
	case err != nil:
		s.logger.Error("scheduled drain cycle failed", "error", err)
	default:
		s.logger.Info("scheduled drain cycle complete",
			"outcome", res.Outcome,
			"attempts", res.Attempts,
			"enqueued", res.Enqueued,
		)
	}

	if ctx.Err() != nil {
		return
	}
	s.prune(ctx)
}

func (s *Scheduler) prune(ctx context.Context) {
	if !s.retention.Enabled || s.pruner == nil || s.retention.MaxAge <= 0 {
		return
	}
	cutoff := s.now().UTC().Add(-s.retention.MaxAge)
	n, err := s.pruner.PrunePublic(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention prune failed", "error", err)
		return
	}
	if s.metrics != nil {
		s.metrics.RetentionPrunedTotal.Add(float64(n))
	}
	if n > 0 {
		s.logger.Info("pruned expired alerts", "count", n, "before", cutoff)
	}
}
