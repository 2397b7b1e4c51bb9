package conversation

import (
	"time"

	"github.com/converso-ai/dialogue-engine/internal/model"
)

// History is the bounded per-session turn history, most-recent-last. When
// the pair bound is exceeded, the oldest turns beyond a preserved prefix are
// dropped; the most recent turns never are.
type History struct {
	turns           []model.Turn
	maxPairs        int
	preservedPrefix int
}

// NewHistory creates a history bounded to maxPairs user/assistant pairs,
// always preserving the first preservedPrefix turns for long-range context.
func NewHistory(maxPairs, preservedPrefix int) *History {
	if maxPairs <= 0 {
		maxPairs = 10
	}
	if preservedPrefix < 0 {
		preservedPrefix = 0
	}
	if preservedPrefix > maxPairs*2 {
		preservedPrefix = maxPairs * 2
	}
	return &History{maxPairs: maxPairs, preservedPrefix: preservedPrefix}
}

// Append adds one turn and applies the trimming policy.
func (h *History) Append(role model.Role, content string) {
	h.appendTurn(model.Turn{Role: role, Content: content, CreatedAt: time.Now().UTC()})
}

// AppendTruncated adds a possibly-truncated assistant turn holding only the
// fragments actually delivered before cancellation.
func (h *History) AppendTruncated(content string) {
	h.appendTurn(model.Turn{Role: model.RoleAssistant, Content: content, CreatedAt: time.Now().UTC(), Truncated: true})
}

func (h *History) appendTurn(t model.Turn) {
	h.turns = append(h.turns, t)
	h.trim()
}

func (h *History) trim() {
	limit := h.maxPairs * 2
	if len(h.turns) <= limit {
		return
	}
	prefix := h.preservedPrefix
	recent := limit - prefix

	trimmed := make([]model.Turn, 0, limit)
	trimmed = append(trimmed, h.turns[:prefix]...)
	trimmed = append(trimmed, h.turns[len(h.turns)-recent:]...)
	h.turns = trimmed
}

// Turns returns a copy of the history.
func (h *History) Turns() []model.Turn {
	return append([]model.Turn(nil), h.turns...)
}

// Recent returns up to n of the most recent turns.
func (h *History) Recent(n int) []model.Turn {
	if n <= 0 || len(h.turns) == 0 {
		return nil
	}
	if n > len(h.turns) {
		n = len(h.turns)
	}
	return append([]model.Turn(nil), h.turns[len(h.turns)-n:]...)
}

// Len returns the number of stored turns.
func (h *History) Len() int {
	return len(h.turns)
}
