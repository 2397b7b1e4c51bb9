package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/converso-ai/dialogue-engine/internal/engine"
	"github.com/converso-ai/dialogue-engine/internal/middleware"
	"github.com/converso-ai/dialogue-engine/internal/model"
	"github.com/converso-ai/dialogue-engine/pkg/logger"
	"github.com/converso-ai/dialogue-engine/pkg/metrics"
)

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(eng *engine.Engine, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		engine: eng,
		logger: log,
	}
}

// TurnCompleteEvent closes a streamed turn.
type TurnCompleteEvent struct {
	Envelope  model.Envelope `json:"envelope"`
	Reply     string         `json:"reply"`
	Truncated bool           `json:"truncated"`
}

// StreamTurn handles POST /api/v1/sessions/:id/stream
// It accepts one message and streams the reply as SSE token events.
func (h *StreamHandler) StreamTurn(w http.ResponseWriter, r *http.Request) {
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

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	env, stream, err := h.engine.ProcessTurnStream(ctx, userID, req.Text)
	if err != nil {
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    "turn_error",
			Message: "failed to process turn",
		})
		return
	}

	// Fixed replies arrive as a single token event.
	if stream == nil {
		sendSSEEvent(w, flusher, "token", &model.TokenEvent{Token: env.FixedMessage, Index: 0})
		sendSSEEvent(w, flusher, "complete", &TurnCompleteEvent{
			Envelope: *env,
			Reply:    env.FixedMessage,
		})
		return
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnected: keep what was delivered, mark truncated.
			stream.Cancel()
			h.logger.Info("SSE client disconnected mid-stream", zap.String("user_id", userID))
			return
		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{Timestamp: time.Now()})
		default:
		}

		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
				Code:    "stream_error",
				Message: err.Error(),
			})
			return
		}

		if sendErr := sendSSEEvent(w, flusher, "token", &model.TokenEvent{
			Token: fragment.Text,
			Index: fragment.Index,
		}); sendErr != nil {
			stream.Cancel()
			return
		}
	}

	sendSSEEvent(w, flusher, "complete", &TurnCompleteEvent{
		Envelope:  *env,
		Reply:     stream.Text(),
		Truncated: stream.Partial(),
	})
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
