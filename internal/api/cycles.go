package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/washcycle-core/internal/cycle"
)

// maxSlugParamLen limits URL parameter length to prevent DoS via oversized params.
const maxSlugParamLen = 100

// handleListCycles returns all stored cycles, newest first, without documents.
func (s *Server) handleListCycles(w http.ResponseWriter, r *http.Request) {
	recs, err := s.cycles.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list cycles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycles": recs, "count": len(recs)})
}

// handleGetCycle returns a single cycle by slug, including its raw document.
func (s *Server) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" || len(slug) > maxSlugParamLen {
		writeBadRequest(w, "invalid cycle slug")
		return
	}

	rec, err := s.cycles.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, cycle.ErrNotFound) {
			writeNotFound(w, "cycle not found")
			return
		}
		writeInternalError(w, "failed to get cycle")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":         rec.ID,
		"slug":       rec.Slug,
		"name":       rec.Name,
		"document":   json.RawMessage(rec.Document),
		"created_at": rec.CreatedAt,
		"updated_at": rec.UpdatedAt,
	})
}

// createCycleRequest is the request body for POST /cycles.
type createCycleRequest struct {
	Slug     string          `json:"slug"`
	Document json.RawMessage `json:"document"`
}

// handleCreateCycle stores a cycle document under a slug. The document is
// parsed and validated before it is accepted; parse warnings (defaulted
// fields, dropped triggers) are returned alongside the stored record so the
// uploader can see what was adjusted.
//
// An existing cycle with the same slug is replaced.
func (s *Server) handleCreateCycle(w http.ResponseWriter, r *http.Request) {
	var req createCycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := cycle.ValidateSlug(req.Slug); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if len(req.Document) == 0 {
		writeBadRequest(w, "document is required")
		return
	}

	c, warnings, err := cycle.Parse(req.Document)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if err := c.Validate(); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	rec := &cycle.Record{
		Slug:     req.Slug,
		Name:     c.Name,
		Document: req.Document,
	}
	if err := s.cycles.Save(r.Context(), rec); err != nil {
		if errors.Is(err, cycle.ErrInvalidSlug) || errors.Is(err, cycle.ErrInvalidDocument) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, "failed to save cycle")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"cycle":    rec,
		"warnings": warnings,
	})
}

// handleDeleteCycle removes a cycle by slug. The currently loaded cycle is
// unaffected; the engine holds its own parsed copy.
func (s *Server) handleDeleteCycle(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" || len(slug) > maxSlugParamLen {
		writeBadRequest(w, "invalid cycle slug")
		return
	}

	if err := s.cycles.Delete(r.Context(), slug); err != nil {
		if errors.Is(err, cycle.ErrNotFound) {
			writeNotFound(w, "cycle not found")
			return
		}
		writeInternalError(w, "failed to delete cycle")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
