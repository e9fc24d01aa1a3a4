// Package auth checks the bearer tokens of the admin HTTP API.
package auth

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/guildbot/internal/dependencies/clock"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthDisabled       = errors.New("admin token is not configured")
)

// Session is a token that has been checked against the configured hash.
// bcrypt is slow on purpose, so a checked token is remembered until it expires.
type Session struct {
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Config holds configuration for the auth service
type Config struct {
	// TokenHash is the bcrypt hash of the admin token; empty disables the API
	TokenHash       string
	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: time.Hour,
	}
}

// Service verifies admin tokens
type Service struct {
	clock     clock.Clock
	tokenHash []byte

	mu       sync.RWMutex
	sessions map[string]*Session

	sessionDuration time.Duration
}

// New creates a new auth service
func New(clock clock.Clock, cfg Config) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		clock:           clock,
		tokenHash:       []byte(cfg.TokenHash),
		sessions:        make(map[string]*Session),
		sessionDuration: cfg.SessionDuration,
	}
}

// HashToken returns the bcrypt hash to configure for token
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Enabled reports whether a token hash is configured
func (s *Service) Enabled() bool {
	return len(s.tokenHash) > 0
}

// Authenticate checks a bearer token
func (s *Service) Authenticate(token string) (*Session, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}
	if token == "" {
		return nil, ErrInvalidCredentials
	}

	now := s.clock.Now()
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()
	if ok && now.Before(session.ExpiresAt) {
		return session, nil
	}

	if err := bcrypt.CompareHashAndPassword(s.tokenHash, []byte(token)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session = &Session{
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}
	s.mu.Lock()
	s.sessions[token] = session
	s.mu.Unlock()
	return session, nil
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}
