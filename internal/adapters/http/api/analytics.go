package api

import (
	"fmt"
	"net/http"

	"github.com/okian/xpboard/internal/aggregate"
	"github.com/okian/xpboard/internal/app"
)

// AnalyticsHandler serves the aggregated views for one run.
type AnalyticsHandler struct {
	deps Dependencies
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps Dependencies) *AnalyticsHandler {
	return &AnalyticsHandler{deps: deps}
}

// analyticsResponse is the envelope returned to the rendering layer.
type analyticsResponse struct {
	Run       string            `json:"run"`
	FromCache bool              `json:"from_cache"`
	Empty     bool              `json:"empty"`
	Stale     bool              `json:"stale,omitempty"`
	Error     string            `json:"error,omitempty"`
	Analytics *aggregate.Bundle `json:"analytics"`
}

// HandleGetAnalytics handles GET /runs/{id}/analytics requests.
//
// By default the response waits for the refreshed result. With ?wait=cache
// the snapshot-backed (or empty) result returns immediately while the
// refresh continues in the background. A failed refresh with a cached
// snapshot yields the stale aggregates plus an error indicator, so the
// caller can tell "refresh failed" apart from "never loaded".
func (h *AnalyticsHandler) HandleGetAnalytics(w http.ResponseWriter, r *http.Request, runID string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	wait := r.URL.Query().Get("wait")
	if wait != "" && wait != "cache" && wait != "refresh" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: wait=%q", ErrBadRequest, wait))
		return
	}

	msgs, err := h.deps.Load(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", fmt.Errorf("%w: %v", ErrNotReady, err))
		return
	}

	waitCache := wait == "cache"
	var first *app.Result

	for msg := range msgs {
		switch msg.Kind {
		case app.KindProgress:
			// Progress is surfaced via /stats and metrics, not this response.
		case app.KindResult:
			res := msg.Result
			if res.FromCache || res.Empty {
				first = res
				if waitCache {
					writeJSON(w, http.StatusOK, analyticsResponse{
						Run:       runID,
						FromCache: res.FromCache,
						Empty:     res.Empty,
						Analytics: res.Bundle,
					})
					go drain(msgs)
					return
				}
				continue
			}
			writeJSON(w, http.StatusOK, analyticsResponse{
				Run:       runID,
				Analytics: res.Bundle,
			})
			go drain(msgs)
			return
		case app.KindFailure:
			if first != nil && !first.Empty {
				writeJSON(w, http.StatusOK, analyticsResponse{
					Run:       runID,
					FromCache: true,
					Stale:     true,
					Error:     msg.Err.Error(),
					Analytics: first.Bundle,
				})
				return
			}
			writeError(w, http.StatusBadGateway, "refresh_failed", msg.Err)
			return
		}
	}

	// Channel closed without a terminal message; treat as failure.
	writeError(w, http.StatusInternalServerError, "internal_error", nil)
}

// drain consumes the remaining messages so the load goroutine can finish.
func drain(msgs <-chan app.Message) {
	for range msgs { //nolint:revive // intentional empty drain
	}
}
