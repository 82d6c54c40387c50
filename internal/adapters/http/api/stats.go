package api

import (
	"net/http"
)

// StatusProvider reports the scheduler's state.
type StatusProvider interface {
	GetStats() map[string]interface{}
	Running() bool
}

// StatusHandler handles status requests.
type StatusHandler struct {
	provider StatusProvider
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(provider StatusProvider) *StatusHandler {
	return &StatusHandler{provider: provider}
}

// HandleStatus handles GET /status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.GetStats())
}
