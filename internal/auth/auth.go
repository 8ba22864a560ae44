// Package auth holds the session context handed to every protected command.
// The token lives behind Store so nothing reads it from ambient state.
package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
)

// ErrNoSession is returned when no token is stored
var ErrNoSession = errors.New("not logged in")

// UserID is a user identifier sent as either a JSON string or number
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

// UserInfo is the user record kept alongside the token
type UserInfo struct {
	ID        UserID `json:"id,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// DisplayName returns the best available name for the user
func (u *UserInfo) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	return u.Email
}

// Credentials is the persisted authentication state
type Credentials struct {
	Token string
	User  *UserInfo
}

// Store persists credentials between commands
type Store interface {
	// Get returns ErrNoSession when nothing is stored
	Get() (*Credentials, error)
	Set(creds Credentials) error
	Clear() error
}

// RequireSession returns the stored credentials or ErrNoSession
func RequireSession(s Store) (*Credentials, error) {
	creds, err := s.Get()
	if err != nil {
		return nil, err
	}
	if creds == nil || strings.TrimSpace(creds.Token) == "" {
		return nil, ErrNoSession
	}
	return creds, nil
}

// AuthorizationHeader formats a token for the Authorization header.
// Tokens already carrying a scheme are sent as-is.
func AuthorizationHeader(token string) string {
	if strings.HasPrefix(token, "Bearer ") {
		return token
	}
	return "Bearer " + token
}

// MemoryStore keeps credentials in process memory
type MemoryStore struct {
	mu    sync.RWMutex
	creds *Credentials
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get() (*Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.creds == nil {
		return nil, ErrNoSession
	}
	c := *m.creds
	return &c, nil
}

func (m *MemoryStore) Set(creds Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = &creds
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = nil
	return nil
}
