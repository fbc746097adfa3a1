// Package events defines the Kafka messages the service produces and
// consumes: an announcement for every published alert and an on-demand
// refresh request that triggers a drain cycle.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/drain"
	apperrors "github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/resilience"
)

// AlertPublished is produced once per newly published alert.
type AlertPublished struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	Source      string          `json:"source"`
	Category    string          `json:"category"`
	Severity    alerts.Severity `json:"severity"`
	Timestamp   time.Time       `json:"timestamp"`
	PublishedAt time.Time       `json:"published_at"`
}

// RefreshRequest asks a service instance to run one drain cycle.
type RefreshRequest struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// Producer is the subset of kafka.Producer used here.
type Producer interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Publisher announces published alerts. Failures are logged and never
// returned: the alert is already public and the announcement is advisory.
type Publisher struct {
	producer Producer
	retry    resilience.RetryConfig
	now      func() time.Time
	logger   *slog.Logger
}

// NewPublisher wraps producer with retrying delivery.
func NewPublisher(producer Producer) *Publisher {
	return &Publisher{
		producer: producer,
		retry: resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
		now:    time.Now,
		logger: slog.Default().With("component", "event-publisher"),
	}
}

// AlertPublished sends an AlertPublished event keyed by category.
func (p *Publisher) AlertPublished(ctx context.Context, rec alerts.PublicRecord) {
	event := kafka.Event{
		Key: rec.Category,
		Value: AlertPublished{
			ID:          rec.ID,
			Title:       rec.Title,
			Description: rec.Description,
			URL:         rec.URL,
			Source:      rec.Source,
			Category:    rec.Category,
			Severity:    rec.Severity,
			Timestamp:   rec.Timestamp,
			PublishedAt: p.now().UTC(),
		},
	}
	err := resilience.Retry(ctx, "publish-alert-event", p.retry, func() error {
		return p.producer.Publish(ctx, event)
	})
	if err != nil {
		p.logger.Error("failed to announce published alert",
			"alert_id", rec.ID,
			"title", rec.Title,
			"error", err,
		)
	}
}

// RequestRefresh sends a RefreshRequest. Unlike AlertPublished the error is
// returned, since the caller is waiting on the request being queued.
func RequestRefresh(ctx context.Context, producer Producer, reason string) error {
	return producer.Publish(ctx, kafka.Event{
		Key: "refresh",
		Value: RefreshRequest{
			Reason:      reason,
			RequestedAt: time.Now().UTC(),
		},
	})
}

// Runner runs one drain cycle.
type Runner interface {
	Run(ctx context.Context) (drain.Result, error)
}

// HandleRefreshRequest returns a kafka.MessageHandler that runs a drain cycle
// per request. A cycle already in progress satisfies the request.
func HandleRefreshRequest(runner Runner) kafka.MessageHandler {
	logger := slog.Default().With("component", "refresh-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		req, err := kafka.DecodeJSON[RefreshRequest](value)
		if err != nil {
			return err
		}
		res, err := runner.Run(ctx)
		if errors.Is(err, apperrors.ErrDrainInProgress) {
			logger.Info("refresh request coalesced with running cycle", "reason", req.Reason)
			return nil
		}
		if err != nil {
			return err
		}
		logger.Info("refresh request handled",
			"reason", req.Reason,
			"outcome", res.Outcome,
			"attempts", res.Attempts,
		)
		return nil
	}
}
