package sqlstore

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/config"
)

const (
	pendingTable = "pending_alerts"
	publicTable  = "public_alerts"
)

func idColumn(driver string) string {
	if driver == config.DriverSQLite {
		return "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return "id BIGSERIAL PRIMARY KEY"
}

func schema(driver string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS pending_alerts (
			` + idColumn(driver) + `,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			warning TEXT NOT NULL DEFAULT '',
			query TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			severity TEXT NOT NULL,
			stamped_at TEXT NOT NULL DEFAULT '',
			fetched_at TEXT NOT NULL DEFAULT '',
			pending BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pending_alerts_pending ON pending_alerts (pending, id)`,
		`CREATE TABLE IF NOT EXISTS public_alerts (
			` + idColumn(driver) + `,
			queue_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			normalized_title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			warning TEXT NOT NULL DEFAULT '',
			query TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			severity TEXT NOT NULL,
			stamped_at TEXT NOT NULL,
			fetched_at TEXT NOT NULL DEFAULT '',
			published_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_public_alerts_title ON public_alerts (normalized_title)`,
		`CREATE INDEX IF NOT EXISTS idx_public_alerts_stamped ON public_alerts (stamped_at)`,
	}
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema(s.db.Driver()) {
		if _, err := s.db.DB.ExecContext(ctx, stmt); err != nil {
			return s.unavailable("migrate", err)
		}
	}
	s.logger.Info("schema migrated", "driver", s.db.Driver())
	return nil
}
