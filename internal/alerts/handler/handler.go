// Package handler implements the scam-alert HTTP endpoints.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/drain"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/validator"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/pkg/logger"
)

const (
	noAlertsMessage = "No scam alerts found"
	pendingMessage  = "Refresh is still running"
)

// Runner runs one drain cycle.
type Runner interface {
	Run(ctx context.Context) (drain.Result, error)
}

// ListResponse is the body of GET /api/v1/scam-alerts.
type ListResponse struct {
	Scams       []alerts.PublicRecord `json:"scams"`
	Total       int                   `json:"total"`
	LastUpdated *time.Time            `json:"last_updated"`
}

// RefreshResponse is the body of POST /api/v1/scam-alerts/refresh. Exactly
// one of the two shapes is populated.
type RefreshResponse struct {
	Status    string               `json:"status,omitempty"`
	Published *int                 `json:"published,omitempty"`
	Alert     *alerts.PublicRecord `json:"alert,omitempty"`

	Message   string     `json:"message,omitempty"`
	Total     *int       `json:"total,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Handler serves the read API and the on-demand refresh.
type Handler struct {
	store   queue.Store
	runner  Runner
	cfg     config.APIConfig
	flights singleflight.Group
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a Handler. runner may be nil, in which case refresh always
// reports that no alerts were found.
func New(store queue.Store, runner Runner, cfg config.APIConfig) *Handler {
	return &Handler{
		store:  store,
		runner: runner,
		cfg:    cfg,
		now:    time.Now,
		logger: slog.Default().With("component", "alerts-handler"),
	}
}

// List returns public alerts, newest first unless order=asc.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	q, err := validator.ValidateListQuery(r.URL.Query(), h.cfg.ListLimit, h.cfg.MaxListLimit)
	if err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": verr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.store.ListPublic(ctx, q.Limit, q.NewestFirst)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("listing alerts failed", "error", err, "status_code", status)
		h.writeError(w, status, "failed to list scam alerts")
		return
	}
	if records == nil {
		records = []alerts.PublicRecord{}
	}

	resp := ListResponse{Scams: records, Total: len(records)}
	if len(records) > 0 {
		ts := records[0].Timestamp
		resp.LastUpdated = &ts
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Refresh runs one drain cycle. Concurrent requests share the same cycle,
// and a client disconnect does not cancel it. When the cycle outlasts
// RefreshWait the request gets 202 and the cycle keeps running.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	log := logger.FromContext(ctx)

	ch := h.flights.DoChan("refresh", func() (any, error) {
		return h.runCycle(ctx)
	})
	var wait <-chan time.Time
	if h.cfg.RefreshWait > 0 {
		timer := time.NewTimer(h.cfg.RefreshWait)
		defer timer.Stop()
		wait = timer.C
	}

	var out singleflight.Result
	select {
	case out = <-ch:
	case <-wait:
		log.Warn("refresh still running, responding early", "wait", h.cfg.RefreshWait)
		h.writeJSON(w, http.StatusAccepted, RefreshResponse{
			Status:  "accepted",
			Message: pendingMessage,
		})
		return
	}

	v, err, shared := out.Val, out.Err, out.Shared
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("refresh failed", "error", err, "status_code", status)
		h.writeError(w, status, "refresh failed")
		return
	}
	res := v.(drain.Result)
	log.Info("refresh complete",
		"outcome", res.Outcome,
		"attempts", res.Attempts,
		"shared", shared,
	)

	if res.Outcome == drain.OutcomeSuccess && res.Record != nil {
		one := 1
		h.writeJSON(w, http.StatusOK, RefreshResponse{
			Status:    "success",
			Published: &one,
			Alert:     res.Record,
		})
		return
	}
	zero := 0
	now := h.now().UTC()
	h.writeJSON(w, http.StatusOK, RefreshResponse{
		Message:   noAlertsMessage,
		Total:     &zero,
		UpdatedAt: &now,
	})
}

func (h *Handler) runCycle(ctx context.Context) (drain.Result, error) {
	if h.runner == nil {
		return drain.Result{Outcome: drain.OutcomeRefresh}, nil
	}
	return h.runner.Run(ctx)
}

// Stats reports the size of both collections.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		logger.FromContext(r.Context()).Error("reading stats failed", "error", err)
		h.writeError(w, status, "failed to read stats")
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
