// Package store provides durable persistence for user profiles: one record
// per user id, loaded at session start and written through after every turn.
package store

import (
	"context"
	"sync"

	"github.com/converso-ai/dialogue-engine/internal/model"
)

// Store is the profile storage contract. Load returns (nil, nil) when no
// record exists for the user id; Save must round-trip exactly. Callers are
// expected to degrade gracefully on error rather than fail the conversation.
type Store interface {
	Load(ctx context.Context, userID string) (*model.UserProfile, error)
	Save(ctx context.Context, profile *model.UserProfile) error
	Close() error
}

// MemoryStore is an in-memory Store, used for tests and as the degraded
// fallback backend.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]model.UserProfile
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]model.UserProfile)}
}

// Load returns a copy of the stored profile, or (nil, nil) when absent.
func (s *MemoryStore) Load(ctx context.Context, userID string) (*model.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := p.Snapshot()
	return &cp, nil
}

// Save stores a copy of the profile, last writer wins.
func (s *MemoryStore) Save(ctx context.Context, profile *model.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile.Snapshot()
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
