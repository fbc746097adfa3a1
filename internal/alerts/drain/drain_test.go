package drain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue/memstore"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue/queuetest"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/metrics"
)

type staticRefiller struct {
	mu      sync.Mutex
	batches [][]alerts.ClassifiedRecord
	calls   int
	started chan struct{}
	once    sync.Once
	block   chan struct{}
}

func (r *staticRefiller) Fetch(ctx context.Context) ([]alerts.ClassifiedRecord, error) {
	if r.started != nil {
		r.once.Do(func() { close(r.started) })
	}
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if len(r.batches) == 0 {
		return nil, nil
	}
	next := r.batches[0]
	if len(r.batches) > 1 {
		r.batches = r.batches[1:]
	}
	return next, nil
}

type recordingSink struct {
	published []alerts.PublicRecord
}

func (s *recordingSink) AlertPublished(_ context.Context, rec alerts.PublicRecord) {
	s.published = append(s.published, rec)
}

var defaultCfg = config.DrainConfig{MaxSteps: DefaultMaxSteps, MaxRefills: DefaultMaxRefills}

func enqueue(t *testing.T, s *memstore.Store, titles ...string) {
	t.Helper()
	recs := make([]alerts.ClassifiedRecord, len(titles))
	for i, title := range titles {
		recs[i] = queuetest.Record(title, time.Duration(i)*time.Minute)
	}
	_, err := s.Enqueue(context.Background(), recs)
	require.NoError(t, err)
}

func TestRunEmptyQueueEmptyRefill(t *testing.T) {
	store := memstore.New()
	refiller := &staticRefiller{}

	res, err := New(store, refiller, defaultCfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefresh, res.Outcome)
	assert.Nil(t, res.Record)
	assert.Equal(t, 1, res.Refills)
	assert.False(t, res.Exhausted)
	assert.Equal(t, 1, refiller.calls)
}

func TestRunPublishesOldestPending(t *testing.T) {
	store := memstore.New()
	enqueue(t, store, "Oldest parcel scam alert", "Newer parcel scam alert")
	sink := &recordingSink{}

	res, err := New(store, &staticRefiller{}, defaultCfg, WithEvents(sink)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	require.NotNil(t, res.Record)
	assert.Equal(t, "Oldest parcel scam alert", res.Record.Title)
	assert.Equal(t, 1, res.Attempts)
	require.Len(t, sink.published, 1)
	assert.Equal(t, res.Record.ID, sink.published[0].ID)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
}

func TestRunSkipsDuplicates(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	enqueue(t, store, "Already public phishing alert")
	_, err := New(store, nil, defaultCfg).Run(ctx)
	require.NoError(t, err)

	enqueue(t, store, "ALREADY PUBLIC PHISHING ALERT", "already public phishing alert", "Fresh romance scam warning")
	res, err := New(store, nil, defaultCfg).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 2, res.Duplicates)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "Fresh romance scam warning", res.Record.Title)
}

func TestRunRefillsThenPublishes(t *testing.T) {
	store := memstore.New()
	refiller := &staticRefiller{batches: [][]alerts.ClassifiedRecord{{
		queuetest.Record("Refilled crypto giveaway scam", 0),
		queuetest.Record("Refilled bank impersonation", time.Minute),
	}}}

	res, err := New(store, refiller, defaultCfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 1, res.Refills)
	assert.Equal(t, 2, res.Enqueued)
	assert.Equal(t, "Refilled crypto giveaway scam", res.Record.Title)
}

func TestRunTerminatesWhenRefillOnlyReturnsDuplicates(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	enqueue(t, store, "Evergreen scam headline")
	_, err := New(store, nil, defaultCfg).Run(ctx)
	require.NoError(t, err)

	refiller := &staticRefiller{batches: [][]alerts.ClassifiedRecord{{queuetest.Record("Evergreen scam headline", 0)}}}
	res, err := New(store, refiller, config.DrainConfig{MaxSteps: 1000, MaxRefills: 3}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefresh, res.Outcome)
	assert.True(t, res.Exhausted)
	assert.Equal(t, 3, res.Refills)
	assert.Equal(t, 3, res.Duplicates)
	assert.Equal(t, 3, refiller.calls)
}

func TestRunStepBound(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	enqueue(t, store, "Bounded duplicate headline")
	_, err := New(store, nil, defaultCfg).Run(ctx)
	require.NoError(t, err)

	dups := make([]string, 10)
	for i := range dups {
		dups[i] = "Bounded duplicate headline"
	}
	enqueue(t, store, dups...)

	res, err := New(store, nil, config.DrainConfig{MaxSteps: 5}).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefresh, res.Outcome)
	assert.True(t, res.Exhausted)
	assert.Less(t, res.Attempts, 5)
}

func TestRunWithoutRefiller(t *testing.T) {
	res, err := New(memstore.New(), nil, defaultCfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefresh, res.Outcome)
	assert.False(t, res.Exhausted)
}

// failingPublishStore fails every publish.
type failingPublishStore struct {
	*memstore.Store
}

func (s failingPublishStore) Publish(context.Context, alerts.QueueItem) (alerts.PublicRecord, bool, error) {
	return alerts.PublicRecord{}, false, fmt.Errorf("publish: %w: connection reset", apperrors.ErrStoreUnavailable)
}

func TestRunStoreFailureLeavesItemPending(t *testing.T) {
	inner := memstore.New()
	enqueue(t, inner, "Item that must stay pending")

	_, err := New(failingPublishStore{inner}, nil, defaultCfg).Run(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)

	item, err := inner.DequeueOne(context.Background())
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Item that must stay pending", item.Title)
	assert.True(t, item.Pending)
}

func TestRunRejectsConcurrentCycle(t *testing.T) {
	refiller := &staticRefiller{started: make(chan struct{}), block: make(chan struct{})}
	loop := New(memstore.New(), refiller, defaultCfg)

	done := make(chan error, 1)
	go func() {
		_, err := loop.Run(context.Background())
		done <- err
	}()
	<-refiller.started

	_, err := loop.Run(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrDrainInProgress)

	close(refiller.block)
	require.NoError(t, <-done)
}

type fakeLocker struct {
	free     bool
	err      error
	released int
}

func (l *fakeLocker) TryAcquire(context.Context) (bool, error) { return l.free, l.err }
func (l *fakeLocker) Release(context.Context) error            { l.released++; return nil }

func TestRunHonoursLocker(t *testing.T) {
	busy := &fakeLocker{free: false}
	_, err := New(memstore.New(), nil, defaultCfg, WithLocker(busy)).Run(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrDrainInProgress)
	assert.Zero(t, busy.released)

	free := &fakeLocker{free: true}
	_, err = New(memstore.New(), nil, defaultCfg, WithLocker(free)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, free.released)

	broken := &fakeLocker{err: errors.New("redis down")}
	_, err = New(memstore.New(), nil, defaultCfg, WithLocker(broken)).Run(context.Background())
	assert.ErrorContains(t, err, "redis down")
}

func TestRunRecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	store := memstore.New()
	enqueue(t, store, "Metered scam headline one")
	loop := New(store, &staticRefiller{}, defaultCfg, WithMetrics(m))

	_, err := loop.Run(context.Background())
	require.NoError(t, err)
	_, err = loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DrainCyclesTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DrainCyclesTotal.WithLabelValues("refresh")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishTotal.WithLabelValues("published")))
}
