// Package session owns the console's auth state: the bearer token and
// the signed-in user. It is an explicit, injected object; nothing in
// the repo reads credentials from ambient globals.
package session

import (
	"log/slog"
	"sync"

	"github.com/veles-markets/console/internal/api"
	"github.com/veles-markets/console/internal/statestore"
)

type Session struct {
	mu          sync.RWMutex
	token       string
	user        *api.UserSummary
	authChecked bool

	store *statestore.Store
	log   *slog.Logger
}

// New builds a session, restoring a previously stored token if one
// exists. The user stays nil until the token is confirmed via /users/me/.
func New(store *statestore.Store, log *slog.Logger) *Session {
	s := &Session{
		store: store,
		log:   log.With("component", "session"),
	}
	if store != nil {
		s.token = store.GetString(statestore.KeyAuthToken)
	}
	return s
}

// Token returns the current bearer token, empty when signed out.
// Passed as the token source to the fetch client.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *api.UserSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// AuthChecked reports whether the session has been confirmed (or
// definitively rejected) against the backend since startup.
func (s *Session) AuthChecked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authChecked
}

// IsAdmin reports whether the signed-in user passes the admin gate.
func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsAdmin()
}

// Set installs a confirmed token + user pair. A blocked role or an
// empty token forces a signed-out session and purges the stored token.
func (s *Session) Set(token string, user api.UserSummary) {
	if token == "" || user.Role == api.RoleBlocked {
		if user.Role == api.RoleBlocked {
			s.log.Warn("blocked user rejected", "username", user.Username)
		}
		s.Clear()
		return
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.authChecked = true
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Set(statestore.KeyAuthToken, token); err != nil {
			s.log.Error("couldn't persist token", "error", err)
		}
	}
}

// Confirm marks the existing token as verified against /users/me/.
// Blocked users are purged the same way Set purges them.
func (s *Session) Confirm(user api.UserSummary) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	s.Set(token, user)
}

// Clear signs the session out and purges the persisted token. Called
// on logout and on any 401.
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.authChecked = true
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Delete(statestore.KeyAuthToken); err != nil {
			s.log.Error("couldn't purge token", "error", err)
		}
	}
}
