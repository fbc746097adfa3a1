// Package queue defines the store that owns the pending-alerts and
// public-alerts collections. Every implementation wraps backend failures in
// errors.ErrStoreUnavailable.
package queue

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts"
)

// Stats summarises both collections.
type Stats struct {
	Pending int64 `json:"pending"`
	Public  int64 `json:"public"`
}

// Store is the work queue and public collection.
type Store interface {
	// Enqueue inserts the whole batch as pending items, or nothing.
	Enqueue(ctx context.Context, batch []alerts.ClassifiedRecord) (int, error)
	// DequeueOne returns the oldest pending item without changing it, or nil
	// when none is pending.
	DequeueOne(ctx context.Context) (*alerts.QueueItem, error)
	// Publish marks item processed and inserts its public form unless a
	// public record with the same normalized title exists. The bool reports
	// whether a record was inserted; a duplicate is not an error.
	Publish(ctx context.Context, item alerts.QueueItem) (alerts.PublicRecord, bool, error)
	// ListPublic returns at most limit public records ordered by timestamp.
	// A limit of zero or less means no limit.
	ListPublic(ctx context.Context, limit int, newestFirst bool) ([]alerts.PublicRecord, error)
	// PrunePublic deletes public records stamped before the cutoff.
	PrunePublic(ctx context.Context, before time.Time) (int64, error)
	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}
