package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prepmate/interview-client/internal/auth"
)

// CredentialStore keeps the session token and user record.
// It implements auth.Store.
type CredentialStore struct {
	db *sql.DB
}

// Credentials returns the auth.Store backed by this database
func (s *Store) Credentials() *CredentialStore {
	return &CredentialStore{db: s.db}
}

func (c *CredentialStore) Get() (*auth.Credentials, error) {
	var token string
	var userJSON sql.NullString
	err := c.db.QueryRowContext(context.Background(),
		`SELECT token, user_json FROM credentials WHERE id = 1`).Scan(&token, &userJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	creds := &auth.Credentials{Token: token}
	if userJSON.Valid && userJSON.String != "" {
		var user auth.UserInfo
		if err := json.Unmarshal([]byte(userJSON.String), &user); err != nil {
			return nil, fmt.Errorf("failed to decode user record: %w", err)
		}
		creds.User = &user
	}
	return creds, nil
}

func (c *CredentialStore) Set(creds auth.Credentials) error {
	var userJSON sql.NullString
	if creds.User != nil {
		data, err := json.Marshal(creds.User)
		if err != nil {
			return fmt.Errorf("failed to encode user record: %w", err)
		}
		userJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := c.db.ExecContext(context.Background(), `
		INSERT INTO credentials (id, token, user_json, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, user_json = excluded.user_json, updated_at = excluded.updated_at
	`, creds.Token, userJSON, now())
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func (c *CredentialStore) Clear() error {
	if _, err := c.db.ExecContext(context.Background(), `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

var _ auth.Store = (*CredentialStore)(nil)
