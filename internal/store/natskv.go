package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/converso-ai/dialogue-engine/internal/model"
)

// Compile-time check that KVStore implements Store.
var _ Store = (*KVStore)(nil)

// ProfileBucket is the JetStream KeyValue bucket holding profile records.
const ProfileBucket = "PROFILES"

// KVStore persists profile records in a NATS JetStream KeyValue bucket,
// keyed 1:1 by user id. JetStream serializes writes per key; last writer
// wins.
type KVStore struct {
	kv jetstream.KeyValue
}

// NewKVStore ensures the profile bucket exists and returns a store over it.
func NewKVStore(ctx context.Context, js jetstream.JetStream) (*KVStore, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      ProfileBucket,
		Description: "Durable user profile records",
		History:     1,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("ensuring profile bucket: %w", err)
	}
	return &KVStore{kv: kv}, nil
}

// Load reads one profile record, returning (nil, nil) when absent.
func (s *KVStore) Load(ctx context.Context, userID string) (*model.UserProfile, error) {
	entry, err := s.kv.Get(ctx, userID)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", userID, err)
	}

	var profile model.UserProfile
	if err := json.Unmarshal(entry.Value(), &profile); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", userID, err)
	}
	return &profile, nil
}

// Save writes the profile record.
func (s *KVStore) Save(ctx context.Context, profile *model.UserProfile) error {
	record, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding profile %s: %w", profile.UserID, err)
	}
	if _, err := s.kv.Put(ctx, profile.UserID, record); err != nil {
		return fmt.Errorf("saving profile %s: %w", profile.UserID, err)
	}
	return nil
}

// Close is a no-op; the NATS connection is owned by the caller.
func (s *KVStore) Close() error {
	return nil
}
