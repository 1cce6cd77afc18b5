package session

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/credosafe/credosafe-go/client"
)

// Session is the authenticated state of the client. IsAuthenticated is
// derived from the token, so the invariant isAuthenticated == (token != "")
// holds by construction and cannot drift.
type Session struct {
	User  *client.UserProfile
	Token string
}

// IsAuthenticated reports whether the session carries a token.
func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

// Manager owns the current session and keeps the token store in sync with
// it. The token store is the source of truth read by the HTTP layer; the
// in-memory session mirrors it for consumers that need the user payload.
type Manager struct {
	mu      sync.RWMutex
	tokens  TokenStore
	current Session
	log     zerolog.Logger
}

// NewManager creates a session manager over the given token store. If the
// store already holds a token (a previous run), the session is restored as
// authenticated with no user payload until the profile is refetched.
func NewManager(tokens TokenStore, logger *zerolog.Logger) (*Manager, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token store is required")
	}
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "session").Logger()
	}

	m := &Manager{tokens: tokens, log: log}
	if token, ok := tokens.Get(); ok {
		m.current = Session{Token: token}
		m.log.Debug().Msg("session restored from token store")
	}
	return m, nil
}

// Login applies a server-issued login result: the token is written to the
// store and the user payload becomes the current session.
func (m *Manager) Login(result client.LoginResult) error {
	if result.Token == "" {
		return fmt.Errorf("login result carries no token")
	}
	if err := m.tokens.Set(result.Token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}

	m.mu.Lock()
	m.current = Session{User: result.User, Token: result.Token}
	m.mu.Unlock()

	m.log.Info().Msg("session established")
	return nil
}

// ApplyProfile overwrites the session's user wholesale with a fresh server
// copy. Profile changes never merge client-side.
func (m *Manager) ApplyProfile(user *client.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.User = user
}

// Clear destroys the session and removes the persisted token. Used for both
// explicit logout and the inactivity timeout.
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.current = Session{}
	m.mu.Unlock()

	if err := m.tokens.Remove(); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	m.log.Info().Msg("session cleared")
	return nil
}

// Current returns a copy of the current session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Tokens exposes the underlying token store, which satisfies the client's
// TokenSource.
func (m *Manager) Tokens() TokenStore {
	return m.tokens
}
