package model

import (
	"sync"
	"time"
)

// Session holds the token issued by the remote service at login. A token is
// replaced by the next successful login and is never cleared.
type Session struct {
	mu       sync.RWMutex
	token    string
	issuedAt time.Time
	logins   int
}

// NewSession creates an unauthenticated session.
func NewSession() *Session {
	return &Session{}
}

// Token returns the current token, empty before the first login.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IssuedAt returns the time of the last successful login.
func (s *Session) IssuedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.issuedAt
}

// Logins returns the number of successful logins.
func (s *Session) Logins() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logins
}

// Valid reports whether a token is held.
func (s *Session) Valid() bool {
	return s.Token() != ""
}

// Set replaces the token.
func (s *Session) Set(token string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.issuedAt = at
	s.logins++
}
