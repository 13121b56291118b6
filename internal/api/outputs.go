package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/washcycle-core/internal/gpio"
)

// handleListOutputs returns the current level of every output line.
func (s *Server) handleListOutputs(w http.ResponseWriter, _ *http.Request) {
	lines := s.outputs.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"outputs": lines, "count": len(lines)})
}

// setOutputRequest is the request body for PUT /outputs/{role}.
type setOutputRequest struct {
	On bool `json:"on"`
}

// handleSetOutput drives a single output by role name. Outputs are
// active-low; "on" energises the line. Rejected while a cycle is running
// so manual pokes cannot fight the dispatcher.
func (s *Server) handleSetOutput(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	if role == "" || len(role) > maxSlugParamLen {
		writeBadRequest(w, "invalid output role")
		return
	}
	// Role names contain spaces ("Cold Valve"); the router leaves
	// percent-encoded params encoded.
	if dec, err := url.PathUnescape(role); err == nil {
		role = dec
	}

	if s.engine.IsRunning() {
		writeConflict(w, "a cycle is running; outputs are under engine control")
		return
	}

	line, ok := s.outputs.Resolve(role)
	if !ok {
		writeNotFound(w, "unknown output role")
		return
	}

	var req setOutputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	level := gpio.LevelOff
	if req.On {
		level = gpio.LevelOn
	}
	s.outputs.Set(line, level)

	s.logger.Info("output set via API", "role", role, "on", req.On)
	writeJSON(w, http.StatusOK, map[string]any{"role": role, "on": req.On})
}

// handleAllOutputsOff drives every output to its safe level.
func (s *Server) handleAllOutputsOff(w http.ResponseWriter, _ *http.Request) {
	if s.engine.IsRunning() {
		writeConflict(w, "a cycle is running; outputs are under engine control")
		return
	}

	s.outputs.AllOff()
	s.logger.Info("all outputs driven off via API")
	writeJSON(w, http.StatusOK, map[string]any{"status": "all_off"})
}
