package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/panelwatt/panelwatt-core/internal/energy"
)

// updateCircuitRequest is the body for PUT /api/circuits/{id}.
// Absent fields are left unchanged.
type updateCircuitRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	MaxAmperage *float64 `json:"max_amperage,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// handleListCircuits returns every circuit across all devices.
func (s *Server) handleListCircuits(w http.ResponseWriter, r *http.Request) {
	circuits, err := s.circuits.ListAll(r.Context())
	if err != nil {
		s.logger.Error("listing circuits failed", "error", err)
		writeInternalError(w, "failed to load circuits")
		return
	}
	if circuits == nil {
		circuits = []*energy.Circuit{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"circuits": circuits})
}

// handleUpdateCircuit applies a partial update to one circuit's
// user-editable fields (name, description, max amperage, active flag).
func (s *Server) handleUpdateCircuit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "circuit id must be an integer")
		return
	}

	var req updateCircuitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Name == nil && req.Description == nil && req.MaxAmperage == nil && req.IsActive == nil {
		writeBadRequest(w, "no fields to update")
		return
	}
	if req.Name != nil && *req.Name == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "name must not be empty")
		return
	}
	if req.MaxAmperage != nil && *req.MaxAmperage <= 0 {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "max_amperage must be positive")
		return
	}

	params := energy.UpdateCircuitParams{
		Name:        req.Name,
		Description: req.Description,
		MaxAmperage: req.MaxAmperage,
		IsActive:    req.IsActive,
	}
	if err := s.circuits.UpdateConfig(r.Context(), id, params); err != nil {
		if errors.Is(err, energy.ErrCircuitNotFound) {
			writeNotFound(w, "circuit not found")
			return
		}
		s.logger.Error("updating circuit failed", "circuit_id", id, "error", err)
		writeInternalError(w, "failed to update circuit")
		return
	}

	circuit, err := s.circuits.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("reloading circuit failed", "circuit_id", id, "error", err)
		writeInternalError(w, "failed to load updated circuit")
		return
	}

	writeJSON(w, http.StatusOK, circuit)
}
