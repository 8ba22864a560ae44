package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prepmate/interview-client/internal/profile"
)

// GetProfile returns the saved profile or ErrNotFound
func (s *Store) GetProfile(ctx context.Context) (*profile.Profile, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT profile_json FROM profile WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p profile.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &p, nil
}

// SaveProfile replaces the saved profile
func (s *Store) SaveProfile(ctx context.Context, p profile.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profile (id, profile_json, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET profile_json = excluded.profile_json, updated_at = excluded.updated_at
	`, string(data), now())
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
