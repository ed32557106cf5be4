package monitoring

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string `json:"status"`
	InstanceID string `json:"instance_id"`
	Version    string `json:"version"`
	UptimeSec  int64  `json:"uptime_sec"`
	Port       Status `json:"port"`
}

// HealthHandler serves the /health endpoint.
type HealthHandler struct {
	instanceID string
	version    string
	startTime  time.Time
	provider   StatusProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(instanceID, version string, provider StatusProvider) *HealthHandler {
	return &HealthHandler{
		instanceID: instanceID,
		version:    version,
		startTime:  time.Now(),
		provider:   provider,
	}
}

// ServeHTTP handles the /health endpoint.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := h.provider.Status()

	status := "healthy"
	if !st.Port.Open {
		status = "degraded"
	}

	response := HealthResponse{
		Status:     status,
		InstanceID: h.instanceID,
		Version:    h.version,
		UptimeSec:  int64(time.Since(h.startTime).Seconds()),
		Port:       st,
	}

	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(response)
}
