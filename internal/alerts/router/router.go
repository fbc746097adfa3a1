// Package router wires up the scam-alert routes and applies the middleware
// chain (RequestID → CORS → Metrics).
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/handler"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/ratelimit"
)

// Deps are the components the router serves. Metrics and Limiter are
// optional.
type Deps struct {
	Handler        *handler.Handler
	Health         *health.Checker
	Metrics        *metrics.Metrics
	Limiter        *ratelimit.Limiter
	RequestTimeout time.Duration
}

// New builds the HTTP handler.
//
// Route table:
//
//	GET    /api/v1/scam-alerts           → list public alerts
//	POST   /api/v1/scam-alerts/refresh   → run one drain cycle (rate limited)
//	GET    /api/v1/scam-alerts/stats     → pending and public counts
//	GET    /health                       → simple ok
//	GET    /health/live                  → liveness
//	GET    /health/ready                 → readiness (component checks)
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → mux
//
// Read routes are bounded by RequestTimeout. Refresh is not: it waits for the
// drain cycle, which may call the upstream provider.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	read := func(h http.HandlerFunc) http.Handler {
		if d.RequestTimeout <= 0 {
			return h
		}
		return pkgmw.Timeout(d.RequestTimeout)(h)
	}

	mux.HandleFunc("GET /health", d.Handler.Health)
	if d.Health != nil {
		mux.Handle("GET /health/live", d.Health.LiveHandler())
		mux.Handle("GET /health/ready", d.Health.ReadyHandler())
	}

	mux.Handle("GET /api/v1/scam-alerts", read(d.Handler.List))
	mux.Handle("GET /api/v1/scam-alerts/stats", read(d.Handler.Stats))

	var refresh http.Handler = http.HandlerFunc(d.Handler.Refresh)
	if d.Limiter != nil {
		refresh = pkgmw.RateLimit(d.Limiter, time.Minute)(refresh)
	}
	mux.Handle("POST /api/v1/scam-alerts/refresh", refresh)

	mws := []func(http.Handler) http.Handler{
		pkgmw.RequestID,
		pkgmw.CORS(pkgmw.DefaultCORSConfig()),
	}
	if d.Metrics != nil {
		mws = append(mws, pkgmw.Metrics(d.Metrics))
	}
	return pkgmw.Chain(mux, mws...)
}
