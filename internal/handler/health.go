package handler

import (
	"net/http"

	natsclient "github.com/converso-ai/dialogue-engine/internal/nats"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	natsClient *natsclient.Client
	eventsOn   bool
}

// NewHealthHandler creates a new health handler. The NATS client may be nil
// when the deployment runs without JetStream.
func NewHealthHandler(natsClient *natsclient.Client, eventsOn bool) *HealthHandler {
	return &HealthHandler{
		natsClient: natsClient,
		eventsOn:   eventsOn,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.eventsOn && (h.natsClient == nil || !h.natsClient.IsConnected()) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
