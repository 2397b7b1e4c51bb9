// Package events publishes per-turn audit events to JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/converso-ai/dialogue-engine/internal/model"
	natsclient "github.com/converso-ai/dialogue-engine/internal/nats"
)

const (
	// StreamName is the name of the turn audit stream.
	StreamName = "DIALOGUE_TURNS"

	// SubjectPrefix is the prefix for all turn event subjects.
	SubjectPrefix = "turns"
)

// Publisher writes turn events to the audit stream.
type Publisher struct {
	client *natsclient.Client
}

// NewPublisher creates a publisher over an established NATS client.
func NewPublisher(client *natsclient.Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream creates the audit stream when it does not exist yet.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Per-turn dialogue audit events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Subject returns the subject for one user's events of a given type.
func Subject(userID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, userID, eventType)
}

// Publish writes one turn event. Missing IDs and timestamps are filled in.
func (p *Publisher) Publish(ctx context.Context, event *model.TurnEvent) (uint64, error) {
	if event.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return 0, fmt.Errorf("failed to generate event id: %w", err)
		}
		event.ID = id.String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := p.client.JetStream().Publish(ctx, Subject(event.UserID, event.Type), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}
	return ack.Sequence, nil
}
