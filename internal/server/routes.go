package server

import "net/http"

// registerRoutes attaches all endpoints to the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Action channel: one endpoint, action-discriminated
	mux.HandleFunc("/exec", s.handleExec)

	// Operational endpoints
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
}
