package api

import (
	"net/http"

	"github.com/okian/xpboard/internal/aggregate"
)

// ExportHandler serves the flat CSV export of a run.
type ExportHandler struct {
	deps    Dependencies
	maxRows int
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps Dependencies, maxRows int) *ExportHandler {
	if maxRows < 1 {
		maxRows = 100_000
	}
	return &ExportHandler{deps: deps, maxRows: maxRows}
}

// HandleGetExport handles GET /runs/{id}/export.csv requests.
func (h *ExportHandler) HandleGetExport(w http.ResponseWriter, r *http.Request, runID string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	rows, err := h.deps.ExportRows(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "export_failed", err)
		return
	}
	if len(rows) > h.maxRows {
		rows = rows[:h.maxRows]
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="run-`+runID+`.csv"`)
	if err := aggregate.WriteCSV(w, rows); err != nil {
		// Headers are gone; nothing more to do than log via middleware metrics.
		return
	}
}
