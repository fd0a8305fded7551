package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/panelwatt/panelwatt-core/internal/energy"
)

// topCircuitLimit caps the per-day cost ranking.
const topCircuitLimit = 10

// handleCostAnalysis returns today's time-of-use cost breakdown, the
// trailing twelve months of totals, and the most expensive circuits.
func (s *Server) handleCostAnalysis(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	today := now.Format(energy.DateFormat)

	todayTotals, err := s.costs.DayTotals(r.Context(), today)
	if err != nil {
		s.logger.Error("loading day totals failed", "error", err)
		writeInternalError(w, "failed to load cost analysis")
		return
	}

	startMonth := now.AddDate(0, -11, 0).Format("2006-01")
	monthly, err := s.costs.MonthlyTotals(r.Context(), startMonth)
	if err != nil {
		s.logger.Error("loading monthly totals failed", "error", err)
		writeInternalError(w, "failed to load cost analysis")
		return
	}
	if monthly == nil {
		monthly = []energy.MonthlyCost{}
	}

	top, err := s.costs.TopCircuits(r.Context(), today, topCircuitLimit)
	if err != nil {
		s.logger.Error("loading top circuits failed", "error", err)
		writeInternalError(w, "failed to load cost analysis")
		return
	}
	if top == nil {
		top = []energy.CircuitCost{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"today":        todayTotals,
		"monthly":      monthly,
		"top_circuits": top,
	})
}

// handleBillingRates returns the active time-of-use rate schedule.
// An empty schedule is a valid state, not an error.
func (s *Server) handleBillingRates(w http.ResponseWriter, r *http.Request) {
	rates, err := s.rates.ListActive(r.Context())
	if err != nil {
		if errors.Is(err, energy.ErrNoRates) {
			writeJSON(w, http.StatusOK, map[string]any{"rates": []energy.BillingRate{}})
			return
		}
		s.logger.Error("loading billing rates failed", "error", err)
		writeInternalError(w, "failed to load billing rates")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rates": rates})
}
