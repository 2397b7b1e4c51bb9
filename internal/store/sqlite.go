package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/converso-ai/dialogue-engine/internal/model"
)

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

const profileSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id    TEXT PRIMARY KEY,
	record     TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`

// SQLiteStore persists profile records as JSON rows in SQLite. The upsert
// serializes concurrent writes per user id; last writer wins.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the profile database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening profile database: %w", err)
	}
	if _, err := db.Exec(profileSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating profiles table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads one profile record, returning (nil, nil) when absent.
func (s *SQLiteStore) Load(ctx context.Context, userID string) (*model.UserProfile, error) {
	var record string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM profiles WHERE user_id = ?`, userID).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", userID, err)
	}

	var profile model.UserProfile
	if err := json.Unmarshal([]byte(record), &profile); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", userID, err)
	}
	return &profile, nil
}

// Save upserts the profile record.
func (s *SQLiteStore) Save(ctx context.Context, profile *model.UserProfile) error {
	record, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encoding profile %s: %w", profile.UserID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, record, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET record = excluded.record, updated_at = excluded.updated_at`,
		profile.UserID, string(record), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving profile %s: %w", profile.UserID, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
