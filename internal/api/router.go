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

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", s.handleHealth)

		// Cycle library endpoints
		r.Route("/cycles", func(r chi.Router) {
			r.Get("/", s.handleListCycles)
			r.Post("/", s.handleCreateCycle)

			r.Route("/{slug}", func(r chi.Router) {
				r.Get("/", s.handleGetCycle)
				r.Delete("/", s.handleDeleteCycle)
			})
		})

		// Engine control endpoints
		r.Route("/engine", func(r chi.Router) {
			r.Get("/status", s.handleEngineStatus)
			r.Post("/load", s.handleLoadCycle)
			r.Post("/start", s.handleStartCycle)
			r.Post("/stop", s.handleStopCycle)
			r.Post("/skip", s.handleSkipPhase)
			r.Post("/skip-to", s.handleSkipToPhase)
		})

		// Output bank endpoints
		r.Route("/outputs", func(r chi.Router) {
			r.Get("/", s.handleListOutputs)
			r.Put("/{role}", s.handleSetOutput)
			r.Post("/all-off", s.handleAllOutputsOff)
		})

		// WebSocket
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
