// Package auth contains domain entities and business logic for
// session-based authentication. Sessions are opaque, time-bounded
// tokens issued at login and checked on every authenticated request.
// This is a pure domain layer with zero external dependencies.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Domain errors for the auth package.
var (
	ErrInvalidToken     = errors.New("auth: invalid session token")
	ErrInvalidStudentID = errors.New("auth: invalid student ID")
	ErrSessionExpired   = errors.New("auth: session expired")
	ErrSessionRevoked   = errors.New("auth: session revoked")
	ErrSessionNotFound  = errors.New("auth: session not found")
)

// DefaultSessionTTL is the fixed validity window for issued sessions.
const DefaultSessionTTL = 24 * time.Hour

// Token represents an opaque session token handed to the client.
type Token string

// IsValid checks that the token is non-empty.
func (t Token) IsValid() bool {
	return t != ""
}

// String returns the string representation of the token.
func (t Token) String() string {
	return string(t)
}

// tokenBytes is the entropy of a freshly minted token. 32 bytes of
// randomness encode to a 64-character hex string.
const tokenBytes = 32

// NewToken mints a fresh opaque session token from the system CSPRNG.
// Tokens carry no structure; the server only ever compares them.
func NewToken() (Token, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: failed to generate token: %w", err)
	}
	return Token(hex.EncodeToString(buf)), nil
}

// Session represents a server-issued, time-bounded proof of authentication.
// Multiple concurrent sessions per student are allowed.
type Session struct {
	Token     Token
	StudentID string
	CreatedAt time.Time
	ExpiresAt time.Time

	// Revoked is set on explicit logout. A revoked session never
	// becomes valid again.
	Revoked   bool
	RevokedAt *time.Time
}

// NewSession creates a new session valid for ttl from issuedAt.
// A non-positive ttl falls back to DefaultSessionTTL.
func NewSession(token Token, studentID string, issuedAt time.Time, ttl time.Duration) (*Session, error) {
	if !token.IsValid() {
		return nil, ErrInvalidToken
	}
	if studentID == "" {
		return nil, ErrInvalidStudentID
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	issuedAt = issuedAt.UTC()

	return &Session{
		Token:     token,
		StudentID: studentID,
		CreatedAt: issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}, nil
}

// CheckValid reports whether the session is valid at the given instant.
// A session is valid if and only if now is strictly before its expiry
// and it has not been revoked. At exactly the expiry instant the
// session is already invalid.
func (s *Session) CheckValid(now time.Time) error {
	if s.Revoked {
		return ErrSessionRevoked
	}
	if !now.Before(s.ExpiresAt) {
		return ErrSessionExpired
	}
	return nil
}

// IsExpired reports whether the session has passed its expiry instant.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Revoke marks the session as revoked. Revoking twice is a no-op and
// keeps the timestamp of the first revocation.
func (s *Session) Revoke(at time.Time) {
	if s.Revoked {
		return
	}

	at = at.UTC()
	s.Revoked = true
	s.RevokedAt = &at
}

// RemainingTTL returns how long the session stays valid from now.
// Returns zero for expired or revoked sessions.
func (s *Session) RemainingTTL(now time.Time) time.Duration {
	if s.Revoked {
		return 0
	}
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
