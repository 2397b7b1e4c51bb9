package model

import (
	"time"
)

// EventType represents the type of turn event published for audit.
type EventType string

const (
	EventTypeTurnCompleted EventType = "turn_completed"
	EventTypeTurnTruncated EventType = "turn_truncated"
	EventTypeSessionEnded  EventType = "session_ended"
	EventTypeError         EventType = "error"
)

// TurnEvent is published to the audit stream after each processed turn.
type TurnEvent struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Type      EventType         `json:"type"`
	State     ConversationState `json:"state"`
	Intent    Intent            `json:"intent,omitempty"`
	Degraded  bool              `json:"degraded,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
