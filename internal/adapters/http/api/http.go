// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/xpboard/internal/aggregate"
	"github.com/okian/xpboard/internal/app"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the orchestrator implementation.
type Dependencies interface {
	// Load starts a cache-first analytics load for a run.
	Load(ctx context.Context, runID string) (<-chan app.Message, error)

	// ExportRows flattens a run's canonical structure for tabular export.
	ExportRows(ctx context.Context, runID string) ([]aggregate.Row, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	analyticsHandler *AnalyticsHandler
	exportHandler    *ExportHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxExportRows int) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		analyticsHandler: NewAnalyticsHandler(deps),
		exportHandler:    NewExportHandler(deps, maxExportRows),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/runs/", MetricsMiddleware(s.handleRuns, "runs"))
}

// handleRuns dispatches /runs/{id}/analytics and /runs/{id}/export.csv.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runID, resource, ok := splitRunPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch resource {
	case "analytics":
		s.analyticsHandler.HandleGetAnalytics(w, r, runID)
	case "export.csv":
		s.exportHandler.HandleGetExport(w, r, runID)
	default:
		http.NotFound(w, r)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
