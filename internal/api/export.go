package api

import (
	"net/http"
	"time"

	"github.com/panelwatt/panelwatt-core/internal/energy"
)

// rawExportLimit caps raw exports. Raw readings at one-second cadence run
// to ~1.5 million rows per day; the dashboard export is not a backup tool.
const rawExportLimit = 10000

// handleExportData returns stored data over a date range.
//
// Query parameters:
//   - type: daily, hourly, or raw (default daily)
//   - start_date, end_date: YYYY-MM-DD, both required, inclusive days
func (s *Server) handleExportData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	exportType := q.Get("type")
	if exportType == "" {
		exportType = "daily"
	}

	startRaw, endRaw := q.Get("start_date"), q.Get("end_date")
	if startRaw == "" || endRaw == "" {
		writeBadRequest(w, "start_date and end_date are required (YYYY-MM-DD)")
		return
	}
	start, err := time.Parse(energy.DateFormat, startRaw)
	if err != nil {
		writeBadRequest(w, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse(energy.DateFormat, endRaw)
	if err != nil {
		writeBadRequest(w, "end_date must be YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		writeBadRequest(w, "end_date must not precede start_date")
		return
	}

	// End day is inclusive; time-keyed queries use the following midnight.
	endExclusive := end.Add(24 * time.Hour)

	switch exportType {
	case "daily":
		rows, err := s.rollups.ExportDaily(r.Context(), startRaw, endRaw)
		if err != nil {
			s.logger.Error("daily export failed", "error", err)
			writeInternalError(w, "export failed")
			return
		}
		if rows == nil {
			rows = []energy.ExportDailyRow{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"type": exportType, "rows": rows})

	case "hourly":
		rows, err := s.rollups.ExportHourly(r.Context(), start, endExclusive)
		if err != nil {
			s.logger.Error("hourly export failed", "error", err)
			writeInternalError(w, "export failed")
			return
		}
		if rows == nil {
			rows = []energy.ExportHourlyRow{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"type": exportType, "rows": rows})

	case "raw":
		rows, err := s.rollups.ExportRaw(r.Context(), start, endExclusive, rawExportLimit)
		if err != nil {
			s.logger.Error("raw export failed", "error", err)
			writeInternalError(w, "export failed")
			return
		}
		if rows == nil {
			rows = []energy.ExportRawRow{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"type":  exportType,
			"limit": rawExportLimit,
			"rows":  rows,
		})

	default:
		writeBadRequest(w, "type must be daily, hourly, or raw")
	}
}
