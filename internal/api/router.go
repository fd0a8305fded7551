package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Dashboard data
		r.Get("/realtime-data", s.handleRealtimeData)
		r.Get("/historical-data", s.handleHistoricalData)
		r.Get("/daily-usage", s.handleDailyUsage)
		r.Get("/cost-analysis", s.handleCostAnalysis)

		// Circuit configuration
		r.Route("/circuits", func(r chi.Router) {
			r.Get("/", s.handleListCircuits)
			r.Put("/{id}", s.handleUpdateCircuit)
		})

		r.Get("/billing-rates", s.handleBillingRates)
		r.Get("/system-status", s.handleSystemStatus)
		r.Get("/export-data", s.handleExportData)
	})

	// WebSocket (live reading feed)
	r.Get("/ws", s.handleWebSocket)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
