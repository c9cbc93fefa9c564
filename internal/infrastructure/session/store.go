// Package session persists the login session between runs. The store holds a
// single record shaped as { user: descriptor, expiresAt: timestamp }, read at
// startup and removed on explicit logout or once expiresAt has passed.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ranchi/uniondash/internal/domain/loan"
)

// defaultFileName is the well-known session file name inside the user config
// directory.
const defaultFileName = "session.json"

// State is the persisted session record.
type State struct {
	User      loan.Session `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// Expired reports whether the record's expiry has passed at the given
// instant.
func (s *State) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Store is a file-backed session store safe for concurrent use. It
// implements transport.SessionSource.
type Store struct {
	path string

	mu    sync.RWMutex
	state *State
}

// DefaultPath returns the default session file location under the user
// config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("session: resolving config dir: %w", err)
	}
	return filepath.Join(dir, "uniondash", defaultFileName), nil
}

// NewStore opens a store at path and loads any persisted session. A missing
// file is not an error; an expired or unreadable record is discarded.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("session: store path is required")
	}
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: reading %s: %w", s.path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		// A corrupt session file is treated as no session.
		_ = os.Remove(s.path)
		return nil
	}
	if st.Expired(time.Now()) {
		_ = os.Remove(s.path)
		return nil
	}
	s.state = &st
	return nil
}

// Save persists a fresh session descriptor with the given lifetime.
func (s *Store) Save(user loan.Session, ttl time.Duration) error {
	st := &State{User: user, ExpiresAt: time.Now().Add(ttl)}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encoding state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("session: creating directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("session: writing %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	return nil
}

// Clear removes the persisted session. It succeeds even when no session
// exists.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.state = nil
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: removing %s: %w", s.path, err)
	}
	return nil
}

// Current returns the stored descriptor if present and unexpired.
func (s *Store) Current() (loan.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil || s.state.Expired(time.Now()) {
		return loan.Session{}, false
	}
	return s.state.User, true
}

// SessionID returns the current session identifier, if any.
func (s *Store) SessionID() (string, bool) {
	user, ok := s.Current()
	if !ok || user.SessionID == "" {
		return "", false
	}
	return user.SessionID, true
}
