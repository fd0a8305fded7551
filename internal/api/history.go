package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/panelwatt/panelwatt-core/internal/energy"
)

// Historical query bounds.
const (
	defaultHistoryHours = 24
	maxHistoryHours     = 720 // 30 days of hourly rows

	defaultUsageDays = 30
	maxUsageDays     = 365
)

// handleHistoricalData returns the hourly power/energy series for the
// last N hours (?hours=N, default 24, max 720).
func (s *Server) handleHistoricalData(w http.ResponseWriter, r *http.Request) {
	hours, ok := queryInt(r, "hours", defaultHistoryHours, 1, maxHistoryHours)
	if !ok {
		writeBadRequest(w, "hours must be an integer between 1 and 720")
		return
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour).Truncate(time.Hour)
	points, err := s.rollups.HourlySeries(r.Context(), since)
	if err != nil {
		s.logger.Error("loading hourly series failed", "error", err)
		writeInternalError(w, "failed to load historical data")
		return
	}
	if points == nil {
		points = []energy.HourlyPoint{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"hours":  hours,
		"points": points,
	})
}

// handleDailyUsage returns per-day energy and cost totals for the last
// N days (?days=N, default 30, max 365).
func (s *Server) handleDailyUsage(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(r, "days", defaultUsageDays, 1, maxUsageDays)
	if !ok {
		writeBadRequest(w, "days must be an integer between 1 and 365")
		return
	}

	endDay := time.Now().UTC().Format(energy.DateFormat)
	usage, err := s.rollups.DailyUsage(r.Context(), endDay, days)
	if err != nil {
		s.logger.Error("loading daily usage failed", "error", err)
		writeInternalError(w, "failed to load daily usage")
		return
	}
	if usage == nil {
		usage = []energy.DailyUsage{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"days":  days,
		"usage": usage,
	})
}

// queryInt reads an integer query parameter with a default and bounds.
// The second return is false when the parameter is present but invalid.
func queryInt(r *http.Request, name string, def, min, max int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, false
	}
	return n, true
}
