package http

import (
	"net/http"

	"github.com/Strob0t/Tally/internal/cache"
)

type cacheStats struct {
	cache.Stats
	Total int `json:"total"`
}

// CacheStats handles GET /api/v1/admin/cache
func (h *Handlers) CacheStats(w http.ResponseWriter, _ *http.Request) {
	st := h.Cache.Stats()
	writeJSON(w, http.StatusOK, cacheStats{Stats: st, Total: st.Total()})
}

// SweepCache handles POST /api/v1/admin/cache/sweep
func (h *Handlers) SweepCache(w http.ResponseWriter, r *http.Request) {
	n := h.Cache.Sweep(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

// ClearCache handles DELETE /api/v1/admin/cache
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.Cache.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type healthStatus struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Bus     string `json:"bus,omitempty"`
	Entries int    `json:"cache_entries"`
}

// Health handles GET /health. A store that cannot be reached turns the
// response into 503; a disconnected bus only degrades it.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{Status: "ok", Store: "ok", Entries: h.Cache.Stats().Total()}
	code := http.StatusOK

	if h.Store != nil {
		if err := h.Store.Ping(r.Context()); err != nil {
			status.Status, status.Store = "unavailable", "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	if h.BusConnected != nil {
		status.Bus = "connected"
		if !h.BusConnected() {
			status.Bus = "disconnected"
			if code == http.StatusOK {
				status.Status = "degraded"
			}
		}
	}
	writeJSON(w, code, status)
}
