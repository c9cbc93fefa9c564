package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ranchi/uniondash/internal/domain/loan"
	"github.com/ranchi/uniondash/internal/infrastructure/session"
)

// stubBackend overrides only the session operations.
type stubBackend struct {
	loan.Backend
	loginErr  error
	logoutErr error
}

func (b *stubBackend) Login(ctx context.Context, username, password string) (*loan.Session, error) {
	if b.loginErr != nil {
		return nil, b.loginErr
	}
	return &loan.Session{UID: 1, SessionID: "sess-cli", Username: username}, nil
}

func (b *stubBackend) Logout(ctx context.Context) error { return b.logoutErr }

// TestLogoutClearsLocalSessionOnServerFailure tests that a failed
// server-side destroy still removes the stored session.
func TestLogoutClearsLocalSessionOnServerFailure(t *testing.T) {
	store, err := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	require.NoError(t, store.Save(loan.Session{SessionID: "sess-x"}, time.Hour))

	backend := &stubBackend{logoutErr: errors.New("server unreachable")}
	require.NoError(t, logout(context.Background(), backend, store, zap.NewNop()))

	_, ok := store.SessionID()
	assert.False(t, ok)
}

// TestLoginPersistsSession tests the login-then-save flow.
func TestLoginPersistsSession(t *testing.T) {
	store, err := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	username = "admin"
	password = "secret"
	t.Cleanup(func() { username, password = "", "" })

	require.NoError(t, login(context.Background(), &stubBackend{}, store, time.Hour))

	id, ok := store.SessionID()
	assert.True(t, ok)
	assert.Equal(t, "sess-cli", id)
}

// TestLoginFailurePropagates tests that rejected credentials surface as an
// error without persisting anything.
func TestLoginFailurePropagates(t *testing.T) {
	store, err := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	username = "admin"
	password = "wrong"
	t.Cleanup(func() { username, password = "", "" })

	backend := &stubBackend{loginErr: loan.ErrAuthFailed}
	err = login(context.Background(), backend, store, time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, loan.ErrAuthFailed)

	_, ok := store.SessionID()
	assert.False(t, ok)
}
