// Package drain moves pending alerts into the public collection one cycle at
// a time. A cycle publishes at most one record: it dequeues the oldest pending
// item and publishes it, skipping duplicates, and refills the queue from the
// ingestion pipeline when it runs dry.
package drain

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/tracing"
)

// Refiller produces a fresh batch when the queue is empty.
type Refiller interface {
	Fetch(ctx context.Context) ([]alerts.ClassifiedRecord, error)
}

// EventSink is told about every newly published record. It must not fail the
// cycle, so it returns nothing.
type EventSink interface {
	AlertPublished(ctx context.Context, rec alerts.PublicRecord)
}

// Locker provides cross-process exclusivity for cycles.
type Locker interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Outcome is how a cycle ended.
type Outcome string

const (
	// OutcomeSuccess means one record was published.
	OutcomeSuccess Outcome = "success"
	// OutcomeRefresh means nothing could be published; callers should report
	// that the feed is being refreshed.
	OutcomeRefresh Outcome = "refresh"
)

// Result summarises one cycle.
type Result struct {
	Outcome    Outcome              `json:"outcome"`
	Record     *alerts.PublicRecord `json:"record,omitempty"`
	Attempts   int                  `json:"attempts"`
	Duplicates int                  `json:"duplicates"`
	Refills    int                  `json:"refills"`
	Enqueued   int                  `json:"enqueued"`
	// Exhausted is set when a step or refill bound ended the cycle.
	Exhausted bool `json:"exhausted"`
}

type state int

const (
	stateDequeue state = iota
	statePublish
	stateRefill
	stateDone
)

// Default bounds for a cycle.
const (
	DefaultMaxSteps   = 200
	DefaultMaxRefills = 3
)

// Loop runs drain cycles. At most one cycle runs at a time per Loop, and per
// Locker when one is configured.
type Loop struct {
	store      queue.Store
	refiller   Refiller
	events     EventSink
	locker     Locker
	metrics    *metrics.Metrics
	maxSteps   int
	maxRefills int
	running    sync.Mutex
	logger     *slog.Logger
}

// Option customises a Loop.
type Option func(*Loop)

// WithEvents announces published records on sink.
func WithEvents(sink EventSink) Option {
	return func(l *Loop) { l.events = sink }
}

// WithLocker guards cycles with a shared lock.
func WithLocker(locker Locker) Option {
	return func(l *Loop) { l.locker = locker }
}

// WithMetrics records cycle outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// New builds a Loop. refiller may be nil, in which case an empty queue ends
// the cycle with OutcomeRefresh.
func New(store queue.Store, refiller Refiller, cfg config.DrainConfig, opts ...Option) *Loop {
	l := &Loop{
		store:      store,
		refiller:   refiller,
		maxSteps:   cfg.MaxSteps,
		maxRefills: cfg.MaxRefills,
		logger:     slog.Default().With("component", "drain"),
	}
	if l.maxSteps <= 0 {
		l.maxSteps = DefaultMaxSteps
	}
	if l.maxRefills <= 0 {
		l.maxRefills = DefaultMaxRefills
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes one cycle. It returns ErrDrainInProgress when another cycle
// holds the lock, and store failures as they occur; an item dequeued before a
// failure stays pending.
func (l *Loop) Run(ctx context.Context) (Result, error) {
	if !l.running.TryLock() {
		l.observe("busy")
		return Result{}, apperrors.ErrDrainInProgress
	}
	defer l.running.Unlock()

	if l.locker != nil {
		ok, err := l.locker.TryAcquire(ctx)
		if err != nil {
			l.observe("error")
			return Result{}, fmt.Errorf("acquiring drain lock: %w", err)
		}
		if !ok {
			l.observe("busy")
			return Result{}, apperrors.ErrDrainInProgress
		}
		defer func() {
			if err := l.locker.Release(context.WithoutCancel(ctx)); err != nil {
				l.logger.Warn("failed to release drain lock", "error", err)
			}
		}()
	}

	ctx, span := tracing.StartSpan(ctx, "drain-cycle", logger.RequestID(ctx))
	res, err := l.cycle(ctx)
	span.SetAttr("outcome", string(res.Outcome))
	span.SetAttr("attempts", res.Attempts)
	span.RecordError(err)
	span.End()
	span.Log(l.logger)

	if err != nil {
		l.observe("error")
		logger.FromContext(ctx).Error("drain cycle failed", "error", err, "attempts", res.Attempts)
		return res, err
	}
	l.observe(string(res.Outcome))
	logger.FromContext(ctx).Info("drain cycle complete",
		"outcome", res.Outcome,
		"attempts", res.Attempts,
		"duplicates", res.Duplicates,
		"refills", res.Refills,
		"enqueued", res.Enqueued,
		"exhausted", res.Exhausted,
	)
	return res, nil
}

func (l *Loop) cycle(ctx context.Context) (Result, error) {
	var (
		res  Result
		item *alerts.QueueItem
		err  error
	)
	st := stateDequeue
	for steps := 0; st != stateDone; steps++ {
		if steps >= l.maxSteps {
			res.Outcome = OutcomeRefresh
			res.Exhausted = true
			l.logger.Warn("drain cycle hit step bound", "max_steps", l.maxSteps)
			break
		}
		switch st {
		case stateDequeue:
			item, err = l.store.DequeueOne(ctx)
			if err != nil {
				return res, err
			}
			if item == nil {
				st = stateRefill
			} else {
				st = statePublish
			}

		case statePublish:
			rec, published, err := l.publish(ctx, *item)
			res.Attempts++
			if err != nil {
				return res, err
			}
			if published {
				res.Outcome = OutcomeSuccess
				res.Record = &rec
				st = stateDone
				continue
			}
			res.Duplicates++
			st = stateDequeue

		case stateRefill:
			if l.refiller == nil || res.Refills >= l.maxRefills {
				res.Outcome = OutcomeRefresh
				res.Exhausted = l.refiller != nil
				st = stateDone
				continue
			}
			res.Refills++
			n, err := l.refill(ctx)
			res.Enqueued += n
			if err != nil {
				return res, err
			}
			if n == 0 {
				res.Outcome = OutcomeRefresh
				st = stateDone
				continue
			}
			st = stateDequeue
		}
	}
	return res, nil
}

func (l *Loop) publish(ctx context.Context, item alerts.QueueItem) (alerts.PublicRecord, bool, error) {
	ctx, span := tracing.StartChildSpan(ctx, "publish")
	defer span.End()
	span.SetAttr("queue_id", item.ID)

	rec, published, err := l.store.Publish(ctx, item)
	if err != nil {
		span.RecordError(err)
		l.countPublish("error")
		return rec, false, err
	}
	if !published {
		span.SetAttr("duplicate", true)
		l.countPublish("duplicate")
		l.logger.Debug("skipping duplicate alert", "queue_id", item.ID, "title", item.Title)
		return rec, false, nil
	}
	l.countPublish("published")
	if l.events != nil {
		l.events.AlertPublished(ctx, rec)
	}
	return rec, true, nil
}

// refill runs to completion even if ctx is cancelled mid-way so a fetched
// batch is not thrown away; cancellation is reported afterwards.
func (l *Loop) refill(ctx context.Context) (int, error) {
	ctx, span := tracing.StartChildSpan(ctx, "refill")
	defer span.End()

	detached := context.WithoutCancel(ctx)
	batch, err := l.refiller.Fetch(detached)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("refilling queue: %w", err)
	}
	span.SetAttr("batch_size", len(batch))
	if len(batch) == 0 {
		return 0, nil
	}
	n, err := l.store.Enqueue(detached, batch)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if l.metrics != nil {
		l.metrics.QueueEnqueuedTotal.Add(float64(n))
	}
	if err := ctx.Err(); err != nil {
		return n, err
	}
	return n, nil
}

func (l *Loop) observe(outcome string) {
	if l.metrics != nil {
		l.metrics.DrainCyclesTotal.WithLabelValues(outcome).Inc()
	}
}

func (l *Loop) countPublish(result string) {
	if l.metrics != nil {
		l.metrics.PublishTotal.WithLabelValues(result).Inc()
	}
}
