package monitoring

import (
	"encoding/json"
	"net/http"
)

// StateHandler serves the full driver state as JSON on /api/state.
type StateHandler struct {
	provider StatusProvider
}

// NewStateHandler creates a new state handler.
func NewStateHandler(provider StatusProvider) *StateHandler {
	return &StateHandler{provider: provider}
}

// ServeHTTP handles the /api/state endpoint.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.provider.Status())
}
