// Package handler exposes the worker's operational HTTP surface: health,
// batch status, and prometheus metrics.
package handler

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shipops/rate-shopper/pkg/utils"
)

type runStatus struct {
	StartedAt time.Time  `json:"started_at"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	RunsTotal int        `json:"runs_total"`
}

type OpsHandler struct {
	logger *slog.Logger

	mu     sync.Mutex
	status runStatus
}

func NewOpsHandler(logger *slog.Logger) *OpsHandler {
	return &OpsHandler{
		logger: logger.With(slog.String("handler", "ops")),
		status: runStatus{StartedAt: time.Now()},
	}
}

func (h *OpsHandler) Init(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())
}

// RecordRun is called by the scheduler after every batch.
func (h *OpsHandler) RecordRun(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	h.status.LastRunAt = &now
	h.status.RunsTotal++
	h.status.LastError = ""
	if err != nil {
		h.status.LastError = err.Error()
	}
}

func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	status := h.status
	h.mu.Unlock()

	utils.WriteJSON(w, status, http.StatusOK)
}
