package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sahabat/config"
)

// User is the subset of the auth server's user record the app cares about.
type User struct {
	ID    string `json:"id"`
	Phone string `json:"phone"`
}

// Session holds the credentials of a signed-in user.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

// Expired reports whether the access token is past (or within margin of) its
// expiry.
func (s *Session) Expired(margin time.Duration) bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return time.Now().Add(margin).Unix() >= s.ExpiresAt
}

// Store persists the session to disk so sign-in survives restarts.
type Store struct {
	path string
}

// NewStore creates a store backed by session.json in the app config directory.
func NewStore() *Store {
	return &Store{path: filepath.Join(config.Dir(), "session.json")}
}

// NewStoreAt creates a store backed by an explicit file path.
func NewStoreAt(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted session. A missing file returns (nil, nil).
func (st *Store) Load() (*Session, error) {
	data, err := os.ReadFile(st.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	if session.AccessToken == "" {
		return nil, nil
	}
	return &session, nil
}

// Save writes the session to disk, readable only by the current user.
func (st *Store) Save(session *Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(st.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Clear removes the persisted session. Missing file is not an error.
func (st *Store) Clear() error {
	err := os.Remove(st.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
