package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/domain"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/heartbeat"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/metrics"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "quantum-heartbeat",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleLatestRun returns the most recent run record
func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.runs.Latest()
	if errors.Is(err, domain.ErrNotAvailable) {
		s.writeError(w, http.StatusNotFound, "not yet available")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load latest run")
		s.writeError(w, http.StatusInternalServerError, "failed to load latest run")
		return
	}

	s.writeJSON(w, http.StatusOK, rec)
}

// handleListRuns returns recent run records, newest first
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	records, err := s.runs.List(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list runs")
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(records),
		"runs":  records,
	})
}

// handleTriggerBeat runs one beat cycle immediately, outside the schedule
func (s *Server) handleTriggerBeat(w http.ResponseWriter, r *http.Request) {
	rec, err := s.heartbeat.Beat(r.Context())
	if errors.Is(err, heartbeat.ErrBeatInFlight) {
		s.writeError(w, http.StatusConflict, "beat already in flight")
		return
	}
	if errors.Is(err, context.Canceled) {
		s.writeError(w, http.StatusRequestTimeout, "beat cancelled")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Manual beat failed")
		s.writeError(w, http.StatusInternalServerError, "beat failed")
		return
	}
	if rec == nil {
		// Budget exhausted: the skip is the designed outcome
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"skipped": true,
			"budget":  s.ledger.Snapshot(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, rec)
}

// handleSurface returns the reconstructed mesh at the requested resolution
func (s *Server) handleSurface(w http.ResponseWriter, r *http.Request) {
	resolution := queryInt(r, "resolution", s.cfg.GridResolution)
	if resolution < 2 || resolution > 256 {
		s.writeError(w, http.StatusBadRequest, "resolution must be between 2 and 256")
		return
	}

	mesh, err := s.surface.Mesh(resolution)
	if errors.Is(err, domain.ErrNotAvailable) {
		s.writeError(w, http.StatusNotFound, "not yet available")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to reconstruct surface")
		s.writeError(w, http.StatusInternalServerError, "failed to reconstruct surface")
		return
	}

	s.writeJSON(w, http.StatusOK, mesh)
}

// handleTrends returns moving statistics over the recent beat history
func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	window := queryInt(r, "window", 5)
	limit := queryInt(r, "limit", 50)

	records, err := s.runs.List(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load run history")
		s.writeError(w, http.StatusInternalServerError, "failed to load run history")
		return
	}
	if len(records) == 0 {
		s.writeError(w, http.StatusNotFound, "not yet available")
		return
	}

	response := map[string]interface{}{
		"trends": metrics.Trends(records, window),
	}
	// Per-qubit bias from the newest distribution
	if bias, err := metrics.QubitBias(records[0].Counts); err == nil {
		response["qubit_bias"] = bias
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleBudget returns the current ledger state
func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	snap := s.ledger.Snapshot()
	beatCost := s.cfg.BeatCeilingSeconds * (1 + s.cfg.SafetyMargin)

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ledger":          snap,
		"beats_remaining": s.ledger.BeatsRemaining(beatCost),
	})
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
