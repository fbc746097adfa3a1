// Package memstore is an in-process queue.Store for tests, dry runs and
// single-node deployments without a database.
package memstore

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue"
	apperrors "github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/errors"
)

type publicEntry struct {
	seq int
	rec alerts.PublicRecord
}

// Store keeps both collections in memory. IDs are monotonic ULIDs, so id
// order is insertion order.
type Store struct {
	mu      sync.Mutex
	pending []alerts.QueueItem
	public  []publicEntry
	seq     int
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
	closed  bool
}

var _ queue.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

func (s *Store) check(op string) error {
	if s.closed {
		return fmt.Errorf("%s: %w: store closed", op, apperrors.ErrStoreUnavailable)
	}
	return nil
}

func (s *Store) Enqueue(_ context.Context, batch []alerts.ClassifiedRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("enqueue"); err != nil {
		return 0, err
	}
	for _, rec := range batch {
		s.pending = append(s.pending, alerts.QueueItem{
			ID:               s.newID(),
			ClassifiedRecord: rec,
			Pending:          true,
		})
	}
	return len(batch), nil
}

func (s *Store) DequeueOne(_ context.Context) (*alerts.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("dequeue"); err != nil {
		return nil, err
	}
	for _, item := range s.pending {
		if item.Pending {
			found := item
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) Publish(_ context.Context, item alerts.QueueItem) (alerts.PublicRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("publish"); err != nil {
		return alerts.PublicRecord{}, false, err
	}
	for i := range s.pending {
		if s.pending[i].ID == item.ID {
			s.pending[i].Pending = false
			break
		}
	}

	key := alerts.NormalizeTitle(item.Title)
	for _, e := range s.public {
		if alerts.NormalizeTitle(e.rec.Title) == key {
			return alerts.PublicRecord{}, false, nil
		}
	}

	rec := item.ToPublic(s.now())
	rec.ID = s.newID()
	s.seq++
	s.public = append(s.public, publicEntry{seq: s.seq, rec: rec})
	return rec, true, nil
}

func (s *Store) ListPublic(_ context.Context, limit int, newestFirst bool) ([]alerts.PublicRecord, error) {
	s.mu.Lock()
	entries := append([]publicEntry(nil), s.public...)
	err := s.check("list public")
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.rec.Timestamp.Equal(b.rec.Timestamp) {
			if newestFirst {
				return a.rec.Timestamp.After(b.rec.Timestamp)
			}
			return a.rec.Timestamp.Before(b.rec.Timestamp)
		}
		if newestFirst {
			return a.seq > b.seq
		}
		return a.seq < b.seq
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]alerts.PublicRecord, len(entries))
	for i, e := range entries {
		out[i] = e.rec
	}
	return out, nil
}

func (s *Store) PrunePublic(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("prune public"); err != nil {
		return 0, err
	}
	kept := s.public[:0]
	var removed int64
	for _, e := range s.public {
		if e.rec.Timestamp.Before(before) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.public = kept
	return removed, nil
}

func (s *Store) Stats(_ context.Context) (queue.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("stats"); err != nil {
		return queue.Stats{}, err
	}
	var stats queue.Stats
	for _, item := range s.pending {
		if item.Pending {
			stats.Pending++
		}
	}
	stats.Public = int64(len(s.public))
	return stats, nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.check("ping")
}

// Close makes every later call fail with ErrStoreUnavailable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
