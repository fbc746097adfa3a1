//go:build integration

// Package integration contains tests that verify the interaction between
// the alert components with real wiring: the SQL store against PostgreSQL,
// and the HTTP service end to end against a fake upstream provider.
//
// Run with:
//
//	go test -v -tags=integration ./test/integration/...
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/handler"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue/queuetest"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue/sqlstore"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/router"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/app"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/database"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func testPostgresConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "scamalerts_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "scamalerts"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// newPostgresStore returns a migrated store with both tables emptied, or
// skips the test when PostgreSQL is unavailable.
func newPostgresStore(t *testing.T) queue.Store {
	t.Helper()
	db, err := database.Open(testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	store := sqlstore.New(db)
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))
	_, err = db.DB.ExecContext(ctx, "TRUNCATE pending_alerts, public_alerts RESTART IDENTITY")
	require.NoError(t, err)
	return store
}

const article = `TITLE: %s
SOURCE: Integration Wire
SUMMARY: Victims receive a message about a parcel.
HOW IT WORKS: A fake fee is collected on a lookalike site.
WARNING: Check the courier's official site.
URL: search for it
---
`

// newUpstream fakes the generateContent endpoint. Every call returns one
// article whose title carries the call number, so refills never repeat.
func newUpstream(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		text := fmt.Sprintf(article, fmt.Sprintf("Parcel fee scam wave number %d", n))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": text}}},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newService(t *testing.T, upstreamURL string) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Database = config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "alerts.db"),
		MaxOpenConns: 4,
	}
	cfg.Upstream.Endpoint = upstreamURL
	cfg.Upstream.APIKey = "integration-key"
	cfg.Pipeline.Queries = []string{"parcel scams in the news"}

	a, err := app.New(context.Background(), cfg, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	srv := httptest.NewServer(router.New(router.Deps{
		Handler:        handler.New(a.Store, a.Drain, cfg.API),
		Health:         a.Health,
		Metrics:        a.Metrics,
		RequestTimeout: cfg.API.RequestTimeout,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestPostgresStoreContract(t *testing.T) {
	queuetest.Run(t, newPostgresStore)
}

func TestRefreshPublishesAndListReturnsIt(t *testing.T) {
	upstream, calls := newUpstream(t)
	srv := newService(t, upstream.URL)

	resp, err := http.Post(srv.URL+"/api/v1/scam-alerts/refresh", "application/json", nil)
	require.NoError(t, err)
	var refreshed map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&refreshed))
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", refreshed["status"])
	assert.Equal(t, int32(1), calls.Load())

	alert := refreshed["alert"].(map[string]any)
	assert.Equal(t, "Parcel fee scam wave number 1", alert["title"])
	assert.Equal(t, "https://www.google.com/search?q=Parcel+fee+scam+wave+number+1", alert["url"])
	assert.Equal(t, "Delivery Scam", alert["category"])

	resp, err = http.Get(srv.URL + "/api/v1/scam-alerts")
	require.NoError(t, err)
	var listed handler.ListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()

	require.Equal(t, 1, listed.Total)
	assert.Equal(t, "Parcel fee scam wave number 1", listed.Scams[0].Title)
	require.NotNil(t, listed.LastUpdated)

	resp, err = http.Get(srv.URL + "/api/v1/scam-alerts/stats")
	require.NoError(t, err)
	var stats queue.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, queue.Stats{Pending: 0, Public: 1}, stats)
}

func TestReadinessReportsComponents(t *testing.T) {
	upstream, _ := newUpstream(t)
	srv := newService(t, upstream.URL)

	resp, err := http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	defer resp.Body.Close()

	var report struct {
		Status     string                    `json:"status"`
		Components map[string]map[string]any `json:"components"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", report.Status)
	assert.Contains(t, report.Components, "store")
	assert.Contains(t, report.Components, "upstream")
}
