// Package queuetest holds the behaviour every queue.Store must share. Store
// implementations call Run from their own tests.
package queuetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue"
	apperrors "github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/errors"
)

// Factory returns a fresh, empty store. The store is closed by the suite.
type Factory func(t *testing.T) queue.Store

var base = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

// Record builds a classified record stamped offset after a fixed base time.
func Record(title string, offset time.Duration) alerts.ClassifiedRecord {
	at := base.Add(offset)
	return alerts.ClassifiedRecord{
		CandidateRecord: alerts.CandidateRecord{
			Title:       title,
			Description: "Description of " + title,
			URL:         "https://news.example/" + fmt.Sprint(offset),
			Source:      "Example News",
			Warning:     "Verify before paying.",
			Query:       "test query",
			Timestamp:   at,
			FetchedAt:   at,
		},
		Category: "Delivery Scam",
		Severity: alerts.SeverityMedium,
	}
}

// Run executes the shared suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	open := func(t *testing.T) queue.Store {
		s := newStore(t)
		t.Cleanup(func() { s.Close() })
		return s
	}

	t.Run("DequeueEmpty", func(t *testing.T) {
		s := open(t)
		item, err := s.DequeueOne(context.Background())
		require.NoError(t, err)
		assert.Nil(t, item)
	})

	t.Run("EnqueueEmptyBatch", func(t *testing.T) {
		s := open(t)
		n, err := s.Enqueue(context.Background(), nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("DequeueReturnsOldestWithoutMutation", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		n, err := s.Enqueue(ctx, []alerts.ClassifiedRecord{
			Record("Oldest courier scam report", 0),
			Record("Second courier scam report", time.Minute),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		first, err := s.DequeueOne(ctx)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, "Oldest courier scam report", first.Title)
		assert.True(t, first.Pending)
		assert.NotEmpty(t, first.ID)

		again, err := s.DequeueOne(ctx)
		require.NoError(t, err)
		require.NotNil(t, again)
		assert.Equal(t, first.ID, again.ID)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, queue.Stats{Pending: 2, Public: 0}, stats)
	})

	t.Run("RoundTripsFields", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		want := Record("Every field survives storage", 90*time.Second)
		want.Severity = alerts.SeverityHigh
		want.Category = "Impersonation"
		_, err := s.Enqueue(ctx, []alerts.ClassifiedRecord{want})
		require.NoError(t, err)

		item, err := s.DequeueOne(ctx)
		require.NoError(t, err)
		require.NotNil(t, item)
		assertSameRecord(t, want, item.ClassifiedRecord)
	})

	t.Run("PublishAdvancesQueue", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		_, err := s.Enqueue(ctx, []alerts.ClassifiedRecord{
			Record("First pending delivery alert", 0),
			Record("Second pending delivery alert", time.Minute),
		})
		require.NoError(t, err)

		item, err := s.DequeueOne(ctx)
		require.NoError(t, err)
		rec, published, err := s.Publish(ctx, *item)
		require.NoError(t, err)
		assert.True(t, published)
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, item.Title, rec.Title)

		next, err := s.DequeueOne(ctx)
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, "Second pending delivery alert", next.Title)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, queue.Stats{Pending: 1, Public: 1}, stats)
	})

	t.Run("PublishDuplicateTitle", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		_, err := s.Enqueue(ctx, []alerts.ClassifiedRecord{
			Record("Fake Toll Road Texts", 0),
			Record("fake toll road texts", time.Minute),
		})
		require.NoError(t, err)

		first, err := s.DequeueOne(ctx)
		require.NoError(t, err)
		_, published, err := s.Publish(ctx, *first)
		require.NoError(t, err)
		assert.True(t, published)

		second, err := s.DequeueOne(ctx)
		require.NoError(t, err)
		require.NotNil(t, second)
		_, published, err = s.Publish(ctx, *second)
		require.NoError(t, err)
		assert.False(t, published)

		// The duplicate is consumed, not left pending.
		empty, err := s.DequeueOne(ctx)
		require.NoError(t, err)
		assert.Nil(t, empty)

		public, err := s.ListPublic(ctx, 0, true)
		require.NoError(t, err)
		require.Len(t, public, 1)
		assert.Equal(t, "Fake Toll Road Texts", public[0].Title)
	})

	t.Run("PublishSameItemTwice", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		_, err := s.Enqueue(ctx, []alerts.ClassifiedRecord{Record("Republished item stays single", 0)})
		require.NoError(t, err)
		item, err := s.DequeueOne(ctx)
		require.NoError(t, err)

		_, published, err := s.Publish(ctx, *item)
		require.NoError(t, err)
		assert.True(t, published)
		_, published, err = s.Publish(ctx, *item)
		require.NoError(t, err)
		assert.False(t, published)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Public)
	})

	t.Run("PublishBackfillsTimestamp", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		rec := Record("Record without a timestamp", 0)
		rec.Timestamp = time.Time{}
		rec.FetchedAt = base.Add(time.Hour)
		_, err := s.Enqueue(ctx, []alerts.ClassifiedRecord{rec})
		require.NoError(t, err)

		item, err := s.DequeueOne(ctx)
		require.NoError(t, err)
		require.NotNil(t, item)
		pub, published, err := s.Publish(ctx, *item)
		require.NoError(t, err)
		require.True(t, published)
		assert.True(t, pub.Timestamp.Equal(base.Add(time.Hour)), "got %s", pub.Timestamp)

		listed, err := s.ListPublic(ctx, 1, true)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.True(t, listed[0].Timestamp.Equal(base.Add(time.Hour)))
	})

	t.Run("ListPublicOrderAndLimit", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		publishAll(t, s,
			Record("Published second by time", 2*time.Minute),
			Record("Published first by time", time.Minute),
			Record("Published third by time", 3*time.Minute),
		)

		newest, err := s.ListPublic(ctx, 2, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"Published third by time", "Published second by time"}, titles(newest))

		oldest, err := s.ListPublic(ctx, 0, false)
		require.NoError(t, err)
		assert.Equal(t, []string{"Published first by time", "Published second by time", "Published third by time"}, titles(oldest))
	})

	t.Run("PrunePublic", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		publishAll(t, s,
			Record("Stale alert from last month", 0),
			Record("Fresh alert from this week", 48*time.Hour),
		)
		_, err := s.Enqueue(ctx, []alerts.ClassifiedRecord{Record("Old but still pending alert", 0)})
		require.NoError(t, err)

		removed, err := s.PrunePublic(ctx, base.Add(24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		public, err := s.ListPublic(ctx, 0, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"Fresh alert from this week"}, titles(public))

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.Pending)
	})

	t.Run("ClosedStoreIsUnavailable", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())
		_, err := s.DequeueOne(context.Background())
		assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
		_, err = s.Enqueue(context.Background(), []alerts.ClassifiedRecord{Record("Never stored anywhere", 0)})
		assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
	})
}

func publishAll(t *testing.T, s queue.Store, recs ...alerts.ClassifiedRecord) {
	t.Helper()
	ctx := context.Background()
	_, err := s.Enqueue(ctx, recs)
	require.NoError(t, err)
	for range recs {
		item, err := s.DequeueOne(ctx)
		require.NoError(t, err)
		require.NotNil(t, item)
		_, published, err := s.Publish(ctx, *item)
		require.NoError(t, err)
		require.True(t, published)
	}
}

func titles(recs []alerts.PublicRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}

func assertSameRecord(t *testing.T, want, got alerts.ClassifiedRecord) {
	t.Helper()
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.URL, got.URL)
	assert.Equal(t, want.Source, got.Source)
	assert.Equal(t, want.Warning, got.Warning)
	assert.Equal(t, want.Query, got.Query)
	assert.Equal(t, want.Category, got.Category)
	assert.Equal(t, want.Severity, got.Severity)
	assert.True(t, want.Timestamp.Equal(got.Timestamp), "timestamp %s != %s", want.Timestamp, got.Timestamp)
	assert.True(t, want.FetchedAt.Equal(got.FetchedAt), "fetched_at %s != %s", want.FetchedAt, got.FetchedAt)
}
