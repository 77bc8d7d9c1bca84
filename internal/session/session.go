// Package session tracks whether a user is authenticated and caches the
// current profile. One Session is constructed at startup and injected into
// everything that needs identity; there is no ambient singleton.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmaccleaning/cleanbook/internal/api"
	"github.com/jmaccleaning/cleanbook/internal/credstore"
	"github.com/jmaccleaning/cleanbook/pkg/logging"
)

// ProfileFetcher fetches the authenticated user's profile. *api.Client
// satisfies it.
type ProfileFetcher interface {
	Profile(ctx context.Context) (*api.UserProfile, error)
}

// State is a point-in-time copy of the session.
type State struct {
	Authenticated bool
	User          *api.UserProfile
}

// Session holds process-wide authentication state. Updates replace the state
// in a single step under the mutex, so readers never observe a torn write.
type Session struct {
	tokens  credstore.Store
	profile ProfileFetcher
	logger  *logging.Logger

	mu            sync.Mutex
	authenticated bool
	user          *api.UserProfile
	onChange      []func(State)
}

// New creates a session over the given credential store and profile source.
func New(tokens credstore.Store, profile ProfileFetcher, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.Default()
	}
	return &Session{
		tokens:  tokens,
		profile: profile,
		logger:  logger,
	}
}

// OnChange registers a callback invoked after every state change. The
// presentation layer uses this to react to login/logout.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// State returns a copy of the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Authenticated: s.authenticated, User: s.user}
}

// User returns the cached profile, or nil when none is loaded.
func (s *Session) User() *api.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Authenticated reports whether the session is logged in.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// CheckStatus resolves the startup state: no token means unauthenticated; a
// token is validated by fetching the profile, and any failure, expired token
// included, forces a full logout. There is no retry.
func (s *Session) CheckStatus(ctx context.Context) error {
	token, err := s.tokens.Token()
	if err != nil {
		return fmt.Errorf("session: read token: %w", err)
	}
	if token == "" {
		s.set(false, nil)
		return nil
	}

	user, err := s.profile.Profile(ctx)
	if err != nil {
		s.logger.Info("stored token rejected, logging out", "error", err)
		return s.Logout()
	}

	s.set(true, user)
	return nil
}

// Login persists the token and fetches the profile. When the fetch fails the
// token stays stored but the session is NOT marked authenticated; a later
// CheckStatus either validates it or clears it.
func (s *Session) Login(ctx context.Context, token string) error {
	if err := s.tokens.Save(token); err != nil {
		return fmt.Errorf("session: save token: %w", err)
	}

	user, err := s.profile.Profile(ctx)
	if err != nil {
		return fmt.Errorf("session: profile fetch after login: %w", err)
	}

	s.set(true, user)
	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return nil
}

// RefreshUser re-fetches the profile into the cache. It is a silent no-op
// without a token, and fetch failures are logged and swallowed so a flaky
// refresh never logs the user out.
func (s *Session) RefreshUser(ctx context.Context) {
	token, err := s.tokens.Token()
	if err != nil || token == "" {
		return
	}

	user, err := s.profile.Profile(ctx)
	if err != nil {
		s.logger.Warn("profile refresh failed, keeping cached user", "error", err)
		return
	}

	s.mu.Lock()
	authenticated := s.authenticated
	s.mu.Unlock()
	s.set(authenticated, user)
}

// Logout clears the token and resets the session state.
func (s *Session) Logout() error {
	if err := s.tokens.Clear(); err != nil {
		return fmt.Errorf("session: clear token: %w", err)
	}
	s.set(false, nil)
	s.logger.Info("user logged out")
	return nil
}

// set replaces the state and notifies subscribers outside the lock.
func (s *Session) set(authenticated bool, user *api.UserProfile) {
	s.mu.Lock()
	s.authenticated = authenticated
	s.user = user
	subscribers := make([]func(State), len(s.onChange))
	copy(subscribers, s.onChange)
	s.mu.Unlock()

	state := State{Authenticated: authenticated, User: user}
	for _, fn := range subscribers {
		fn(state)
	}
}
