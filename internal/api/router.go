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

	// Service index
	r.Get("/", s.handleIndex)

	// Master switch. Command routes accept GET as well as POST so the
	// daemon stays curl- and bookmark-friendly.
	r.Get("/on", s.handleMasterOn)
	r.Post("/on", s.handleMasterOn)
	r.Get("/off", s.handleMasterOff)
	r.Post("/off", s.handleMasterOff)

	// Individual outlets
	r.Route("/switch/{outlet}", func(r chi.Router) {
		r.Get("/on", s.handleOutletOn)
		r.Post("/on", s.handleOutletOn)
		r.Get("/off", s.handleOutletOff)
		r.Post("/off", s.handleOutletOff)
	})

	// Status and inventory
	r.Get("/status", s.handleStatus)
	r.Get("/sockets", s.handleSockets)

	// Health check and runtime metrics
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)

	// WebSocket event stream
	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/events"
	}
	r.Get(wsPath, s.hub.ServeHTTP)

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"device":  s.deviceID,
	})
}
