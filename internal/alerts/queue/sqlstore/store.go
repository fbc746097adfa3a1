// Package sqlstore implements queue.Store on PostgreSQL or SQLite. Queries are
// built with squirrel so one code path serves both placeholder dialects.
//
// The duplicate check in Publish runs inside the publishing transaction but
// is not backed by a unique constraint; two concurrent publishers of the same
// title can both insert. Drain cycles are serialised by the drain lock.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/database"
	apperrors "github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/errors"
)

var recordColumns = []string{
	"title", "description", "url", "source", "warning", "query",
	"category", "severity", "stamped_at", "fetched_at",
}

// Store is a queue.Store over a database.Client.
type Store struct {
	db     *database.Client
	sb     sq.StatementBuilderType
	now    func() time.Time
	logger *slog.Logger
}

var _ queue.Store = (*Store)(nil)

// New wraps db. Call Migrate before first use.
func New(db *database.Client) *Store {
	return &Store{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(placeholderFor(db.Driver())),
		now:    time.Now,
		logger: slog.Default().With("component", "sqlstore", "driver", db.Driver()),
	}
}

func placeholderFor(driver string) sq.PlaceholderFormat {
	var placeholder sq.PlaceholderFormat = sq.Dollar
	if driver == config.DriverSQLite {
		placeholder = sq.Question
	}
	return placeholder
}

func (s *Store) unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, apperrors.ErrStoreUnavailable, err)
}

func recordValues(rec alerts.ClassifiedRecord) []any {
	return []any{
		rec.Title, rec.Description, rec.URL, rec.Source, rec.Warning, rec.Query,
		rec.Category, string(rec.Severity), alerts.FormatTime(rec.Timestamp), alerts.FormatTime(rec.FetchedAt),
	}
}

func (s *Store) Enqueue(ctx context.Context, batch []alerts.ClassifiedRecord) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	created := alerts.FormatTime(s.now())
	insert := s.sb.Insert(pendingTable).Columns(append(recordColumns, "pending", "created_at")...)
	for _, rec := range batch {
		insert = insert.Values(append(recordValues(rec), true, created)...)
	}
	query, args, err := insert.ToSql()
	if err != nil {
		return 0, fmt.Errorf("building enqueue: %w", err)
	}

	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		return 0, s.unavailable("enqueue", err)
	}
	return len(batch), nil
}

func (s *Store) DequeueOne(ctx context.Context) (*alerts.QueueItem, error) {
	query, args, err := s.sb.
		Select(append([]string{"id"}, append(recordColumns, "pending")...)...).
		From(pendingTable).
		Where(sq.Eq{"pending": true}).
		OrderBy("id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building dequeue: %w", err)
	}

	var (
		id   int64
		item alerts.QueueItem
	)
	dest := []any{&id}
	scan, finish := scanRecord(&item.ClassifiedRecord)
	dest = append(dest, scan...)
	dest = append(dest, &item.Pending)

	err = s.db.DB.QueryRowContext(ctx, query, args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.unavailable("dequeue", err)
	}
	if err := finish(); err != nil {
		return nil, s.unavailable("dequeue", err)
	}
	item.ID = strconv.FormatInt(id, 10)
	return &item, nil
}

func (s *Store) Publish(ctx context.Context, item alerts.QueueItem) (alerts.PublicRecord, bool, error) {
	queueID, err := strconv.ParseInt(item.ID, 10, 64)
	if err != nil {
		return alerts.PublicRecord{}, false, fmt.Errorf("publish: %w: queue id %q", apperrors.ErrInvalidInput, item.ID)
	}
	now := s.now()
	rec := item.ToPublic(now)
	normalized := alerts.NormalizeTitle(item.Title)

	var published bool
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		update, args, err := s.sb.Update(pendingTable).
			Set("pending", false).
			Where(sq.Eq{"id": queueID}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, update, args...); err != nil {
			return err
		}

		lookup, args, err := s.sb.Select("id").
			From(publicTable).
			Where(sq.Eq{"normalized_title": normalized}).
			Limit(1).
			ToSql()
		if err != nil {
			return err
		}
		var existing int64
		err = tx.QueryRowContext(ctx, lookup, args...).Scan(&existing)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		cols := append([]string{"queue_id", "normalized_title"}, recordColumns...)
		vals := append([]any{item.ID, normalized}, recordValues(rec.ClassifiedRecord)...)
		insert, args, err := s.sb.Insert(publicTable).
			Columns(append(cols, "published_at")...).
			Values(append(vals, alerts.FormatTime(now))...).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return err
		}
		var id int64
		if err := tx.QueryRowContext(ctx, insert, args...).Scan(&id); err != nil {
			return err
		}
		rec.ID = strconv.FormatInt(id, 10)
		published = true
		return nil
	})
	if err != nil {
		return alerts.PublicRecord{}, false, s.unavailable("publish", err)
	}
	if !published {
		return alerts.PublicRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) ListPublic(ctx context.Context, limit int, newestFirst bool) ([]alerts.PublicRecord, error) {
	order := []string{"stamped_at ASC", "id ASC"}
	if newestFirst {
		order = []string{"stamped_at DESC", "id DESC"}
	}
	sel := s.sb.Select(append([]string{"id"}, recordColumns...)...).
		From(publicTable).
		OrderBy(order...)
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list: %w", err)
	}

	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.unavailable("list public", err)
	}
	defer rows.Close()

	var out []alerts.PublicRecord
	for rows.Next() {
		var (
			id  int64
			rec alerts.PublicRecord
		)
		scan, finish := scanRecord(&rec.ClassifiedRecord)
		if err := rows.Scan(append([]any{&id}, scan...)...); err != nil {
			return nil, s.unavailable("list public", err)
		}
		if err := finish(); err != nil {
			return nil, s.unavailable("list public", err)
		}
		rec.ID = strconv.FormatInt(id, 10)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.unavailable("list public", err)
	}
	return out, nil
}

func (s *Store) PrunePublic(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := s.sb.Delete(publicTable).
		Where(sq.Lt{"stamped_at": alerts.FormatTime(before)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building prune: %w", err)
	}
	res, err := s.db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, s.unavailable("prune public", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.unavailable("prune public", err)
	}
	return n, nil
}

func (s *Store) Stats(ctx context.Context) (queue.Stats, error) {
	var stats queue.Stats
	pending, args, err := s.sb.Select("COUNT(*)").From(pendingTable).Where(sq.Eq{"pending": true}).ToSql()
	if err != nil {
		return stats, fmt.Errorf("building stats: %w", err)
	}
	if err := s.db.DB.QueryRowContext(ctx, pending, args...).Scan(&stats.Pending); err != nil {
		return stats, s.unavailable("stats", err)
	}
	public, args, err := s.sb.Select("COUNT(*)").From(publicTable).ToSql()
	if err != nil {
		return stats, fmt.Errorf("building stats: %w", err)
	}
	if err := s.db.DB.QueryRowContext(ctx, public, args...).Scan(&stats.Public); err != nil {
		return stats, s.unavailable("stats", err)
	}
	return stats, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return s.unavailable("ping", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// scanRecord returns scan destinations for recordColumns and a function that
// converts the scanned text columns into rec once Scan has run.
func scanRecord(rec *alerts.ClassifiedRecord) ([]any, func() error) {
	var severity, stamped, fetched string
	dest := []any{
		&rec.Title, &rec.Description, &rec.URL, &rec.Source, &rec.Warning, &rec.Query,
		&rec.Category, &severity, &stamped, &fetched,
	}
	return dest, func() error {
		rec.Severity = alerts.Severity(severity)
		var err error
		if rec.Timestamp, err = alerts.ParseTime(stamped); err != nil {
			return fmt.Errorf("parsing stamped_at %q: %w", stamped, err)
		}
		if rec.FetchedAt, err = alerts.ParseTime(fetched); err != nil {
			return fmt.Errorf("parsing fetched_at %q: %w", fetched, err)
		}
		return nil
	}
}
