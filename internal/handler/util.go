package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/converso-ai/dialogue-engine/internal/model"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response using the same payload shape as the
// SSE error events, with a snake_case code derived from the status.
func writeError(w http.ResponseWriter, status int, message string) {
	code := strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	writeJSON(w, status, &model.ErrorEvent{Code: code, Message: message})
}
