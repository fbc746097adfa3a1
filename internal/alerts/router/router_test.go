package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/handler"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue/memstore"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/ratelimit"
)

func newServer(t *testing.T, limiter *ratelimit.Limiter) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	h := handler.New(memstore.New(), nil, config.APIConfig{ListLimit: 30, MaxListLimit: 100})
	srv := httptest.NewServer(New(Deps{
		Handler:        h,
		Health:         health.NewChecker(),
		Metrics:        m,
		Limiter:        limiter,
		RequestTimeout: time.Second,
	}))
	t.Cleanup(srv.Close)
	return srv, m
}

func TestRoutes(t *testing.T) {
	srv, _ := newServer(t, nil)

	tests := []struct {
		method string
		path   string
		code   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/health/live", http.StatusOK},
		{http.MethodGet, "/health/ready", http.StatusOK},
		{http.MethodGet, "/api/v1/scam-alerts", http.StatusOK},
		{http.MethodGet, "/api/v1/scam-alerts/stats", http.StatusOK},
		{http.MethodPost, "/api/v1/scam-alerts/refresh", http.StatusOK},
		{http.MethodDelete, "/api/v1/scam-alerts", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}

func TestChainSetsRequestIDAndCORS(t *testing.T) {
	srv, _ := newServer(t, nil)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/scam-alerts", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get(pkgmw.RequestIDHeader))
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRefreshIsRateLimited(t *testing.T) {
	srv, m := newServer(t, ratelimit.New(1, time.Minute))

	first, err := http.Post(srv.URL+"/api/v1/scam-alerts/refresh", "application/json", nil)
	require.NoError(t, err)
	first.Body.Close()
	second, err := http.Post(srv.URL+"/api/v1/scam-alerts/refresh", "application/json", nil)
	require.NoError(t, err)
	second.Body.Close()

	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)

	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(
		http.MethodPost, "POST /api/v1/scam-alerts/refresh", "429"))
	assert.Equal(t, 1.0, count)
}
