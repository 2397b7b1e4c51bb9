// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/converso-ai/dialogue-engine/internal/engine"
	"github.com/converso-ai/dialogue-engine/internal/middleware"
	"github.com/converso-ai/dialogue-engine/internal/model"
	"github.com/converso-ai/dialogue-engine/pkg/logger"
)

// SessionHandler handles session and profile endpoints.
type SessionHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(eng *engine.Engine, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		engine: eng,
		logger: log,
	}
}

// ProcessTurn handles POST /api/v1/sessions/:id/turns
func (h *SessionHandler) ProcessTurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")

	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.ProcessTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.engine.ProcessTurn(ctx, userID, req.Text)
	if err != nil {
		h.logger.Error("failed to process turn", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process turn")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /api/v1/sessions/:id
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.engine.SessionStatus(userID))
}

// Profile handles GET /api/v1/profiles/:id
func (h *SessionHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "id")

	if err := middleware.ValidateUserID(userID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.engine.Profile(ctx, userID)
	if err != nil {
		h.logger.Error("failed to load profile", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
