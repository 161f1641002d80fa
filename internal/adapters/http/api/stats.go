// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"math"
	"net/http"
	"time"

	"github.com/okian/calmate/pkg/metrics"
)

// StatsProvider reports the service configuration and lifecycle state.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats: the service's own stats plus uptime and
// per-tool call counts of the assistant.
type StatsHandler struct {
	statsProvider StatsProvider
	now           func() time.Time
	startedAt     time.Time
}

// NewStatsHandler creates a stats handler. Uptime is measured from now().
func NewStatsHandler(statsProvider StatsProvider, now func() time.Time) *StatsHandler {
	if now == nil {
		now = time.Now
	}
	return &StatsHandler{statsProvider: statsProvider, now: now, startedAt: now()}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	out := make(map[string]interface{})
	for k, v := range h.statsProvider.GetStats() {
		out[k] = v
	}
	out["uptimeSeconds"] = math.Floor(h.now().Sub(h.startedAt).Seconds())
	out["toolCalls"] = metrics.ToolInvocationTotals()
	writeJSON(w, http.StatusOK, out)
}
