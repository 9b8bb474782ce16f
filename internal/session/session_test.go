package session

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veles-markets/console/internal/api"
	"github.com/veles-markets/console/internal/statestore"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	store, err := statestore.Open(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	return New(store, slog.Default())
}

func TestSetStoresTokenAndUser(t *testing.T) {
	s := newTestSession(t)
	s.Set("tok", api.UserSummary{ID: 1, Username: "ana", Role: api.RoleAdmin})

	assert.Equal(t, "tok", s.Token())
	require.NotNil(t, s.User())
	assert.Equal(t, "ana", s.User().Username)
	assert.True(t, s.AuthChecked())
}

func TestBlockedRoleNeverLeavesUserSet(t *testing.T) {
	s := newTestSession(t)
	s.Set("tok", api.UserSummary{ID: 2, Username: "mallory", Role: api.RoleBlocked})

	assert.Nil(t, s.User())
	assert.Empty(t, s.Token())
}

func TestEmptyTokenForcesSignedOut(t *testing.T) {
	s := newTestSession(t)
	s.Set("", api.UserSummary{ID: 3, Username: "bob", Role: api.RoleTrader})

	assert.Nil(t, s.User())
	assert.Empty(t, s.Token())
}

func TestAdminGate(t *testing.T) {
	tests := []struct {
		name string
		user api.UserSummary
		want bool
	}{
		{"admin role", api.UserSummary{Role: api.RoleAdmin}, true},
		{"staff trader", api.UserSummary{Role: api.RoleTrader, IsStaff: true}, true},
		{"plain trader", api.UserSummary{Role: api.RoleTrader}, false},
		{"whale", api.UserSummary{Role: api.RoleWhale}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t)
			s.Set("tok", tt.user)
			assert.Equal(t, tt.want, s.IsAdmin())
		})
	}
}

func TestClearPurgesPersistedToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := statestore.Open(path)
	require.NoError(t, err)

	s := New(store, slog.Default())
	s.Set("tok", api.UserSummary{ID: 1, Role: api.RoleAdmin})
	s.Clear()

	assert.Empty(t, s.Token())
	assert.Nil(t, s.User())

	// The purge reaches disk: a fresh session restores nothing.
	store2, err := statestore.Open(path)
	require.NoError(t, err)
	s2 := New(store2, slog.Default())
	assert.Empty(t, s2.Token())
}

func TestTokenRestoredFromStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := statestore.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(statestore.KeyAuthToken, "stored-tok"))

	s := New(store, slog.Default())
	assert.Equal(t, "stored-tok", s.Token())
	// Restored tokens are unconfirmed until /users/me/ answers.
	assert.False(t, s.AuthChecked())
	assert.Nil(t, s.User())
}
