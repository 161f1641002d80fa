// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/calmate/pkg/logger"
	"github.com/okian/calmate/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the credential store can serve requests.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	ready ReadinessChecker
	log   logger.Logger
}

// NewHealthHandler creates a health handler. A nil ready skips the store check.
func NewHealthHandler(ready ReadinessChecker, log logger.Logger) *HealthHandler {
	return &HealthHandler{ready: ready, log: log}
}

// HandleHealth handles GET /healthz requests. A ready service answers with
// its Prometheus metrics; an unreachable store answers 503.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready.Ready(r.Context()); err != nil {
			h.log.Warn(r.Context(), "health check failed", logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "credential store unavailable", Code: "not_ready"})
			return
		}
	}
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
