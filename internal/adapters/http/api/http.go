// Package api serves the ops endpoints of the daemon: metrics and run status.
package api

import (
	"encoding/json"
	"net/http"
)

// Server wires HTTP routes for the ops API.
type Server struct {
	healthHandler *HealthHandler
	statusHandler *StatusHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(status StatusProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statusHandler: NewStatusHandler(status),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
