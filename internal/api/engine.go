package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/washcycle-core/internal/cycle"
	"github.com/nerrad567/washcycle-core/internal/engine"
)

// handleEngineStatus returns a snapshot of engine state.
func (s *Server) handleEngineStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// loadCycleRequest is the request body for POST /engine/load.
type loadCycleRequest struct {
	Slug string `json:"slug"`
}

// handleLoadCycle fetches a stored cycle by slug, parses it, and installs
// it on the engine. Rejected while a cycle is running.
func (s *Server) handleLoadCycle(w http.ResponseWriter, r *http.Request) {
	var req loadCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Slug == "" || len(req.Slug) > maxSlugParamLen {
		writeBadRequest(w, "slug is required")
		return
	}

	rec, err := s.cycles.GetBySlug(r.Context(), req.Slug)
	if err != nil {
		if errors.Is(err, cycle.ErrNotFound) {
			writeNotFound(w, "cycle not found")
			return
		}
		writeInternalError(w, "failed to get cycle")
		return
	}

	c, warnings, err := cycle.Parse(rec.Document)
	if err != nil {
		writeInternalError(w, "stored cycle document is invalid")
		return
	}

	phases, err := s.engine.Load(c)
	if err != nil {
		if errors.Is(err, engine.ErrCycleRunning) {
			writeConflict(w, "a cycle is running")
			return
		}
		writeBadRequest(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"slug":     req.Slug,
		"name":     c.Name,
		"phases":   phases,
		"warnings": warnings,
	})
}

// handleStartCycle begins execution of the loaded cycle. Execution runs in
// the background; state updates arrive via WebSocket on "cycle.state".
func (s *Server) handleStartCycle(w http.ResponseWriter, _ *http.Request) {
	// The cycle outlives the request; it runs until completion or Stop.
	if err := s.engine.Run(context.Background()); err != nil {
		switch {
		case errors.Is(err, engine.ErrNoCycle):
			writeConflict(w, "no cycle loaded")
		case errors.Is(err, engine.ErrAlreadyRunning):
			writeConflict(w, "a cycle is already running")
		default:
			writeInternalError(w, "failed to start cycle")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":  "started",
		"message": "cycle execution started, state updates will follow via WebSocket",
	})
}

// handleStopCycle ends the running cycle. Safe to call when idle.
func (s *Server) handleStopCycle(w http.ResponseWriter, _ *http.Request) {
	s.engine.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"status": "stopped"})
}

// skipPhaseRequest is the request body for POST /engine/skip.
type skipPhaseRequest struct {
	ForceOutputsOff bool `json:"force_outputs_off"`
}

// handleSkipPhase cancels the active phase and advances to the next one.
func (s *Server) handleSkipPhase(w http.ResponseWriter, r *http.Request) {
	var req skipPhaseRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	s.engine.SkipCurrentPhase(req.ForceOutputsOff)
	writeJSON(w, http.StatusOK, map[string]any{"status": "skipped"})
}

// skipToPhaseRequest is the request body for POST /engine/skip-to.
type skipToPhaseRequest struct {
	Index int `json:"index"`
}

// handleSkipToPhase cancels the active phase and resumes at the given index.
func (s *Server) handleSkipToPhase(w http.ResponseWriter, r *http.Request) {
	var req skipToPhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.engine.SkipToPhase(req.Index); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "skipped", "index": req.Index})
}
