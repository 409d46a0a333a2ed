package auth

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewToken(t *testing.T) {
	tok, err := NewToken()
	assert.NoError(t, err)
	assert.Len(t, tok.String(), 64)
	assert.True(t, tok.IsValid())

	_, err = hex.DecodeString(tok.String())
	assert.NoError(t, err)

	// Two mints never collide.
	other, err := NewToken()
	assert.NoError(t, err)
	assert.NotEqual(t, tok, other)
}

func TestNewSession(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	session, err := NewSession("tok-1", "student-1", issued, DefaultSessionTTL)
	assert.NoError(t, err)
	assert.Equal(t, Token("tok-1"), session.Token)
	assert.Equal(t, "student-1", session.StudentID)
	assert.Equal(t, issued.Add(24*time.Hour), session.ExpiresAt)
	assert.False(t, session.Revoked)
}

func TestNewSession_Validation(t *testing.T) {
	issued := time.Now()

	_, err := NewSession("", "student-1", issued, DefaultSessionTTL)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewSession("tok-1", "", issued, DefaultSessionTTL)
	assert.ErrorIs(t, err, ErrInvalidStudentID)
}

func TestSession_CheckValid_ExpiryBoundary(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session, err := NewSession("tok-1", "student-1", issued, DefaultSessionTTL)
	assert.NoError(t, err)

	// Strictly before the expiry instant the session is valid.
	assert.NoError(t, session.CheckValid(session.ExpiresAt.Add(-time.Nanosecond)))

	// At the expiry instant the session is already invalid.
	assert.ErrorIs(t, session.CheckValid(session.ExpiresAt), ErrSessionExpired)
	assert.ErrorIs(t, session.CheckValid(session.ExpiresAt.Add(time.Hour)), ErrSessionExpired)
}

func TestSession_CheckValid_Revoked(t *testing.T) {
	issued := time.Now().UTC()
	session, err := NewSession("tok-1", "student-1", issued, DefaultSessionTTL)
	assert.NoError(t, err)

	session.Revoke(issued.Add(time.Minute))
	assert.ErrorIs(t, session.CheckValid(issued.Add(2*time.Minute)), ErrSessionRevoked)
}

func TestSession_Revoke_Idempotent(t *testing.T) {
	issued := time.Now().UTC()
	session, err := NewSession("tok-1", "student-1", issued, DefaultSessionTTL)
	assert.NoError(t, err)

	first := issued.Add(time.Minute)
	session.Revoke(first)
	session.Revoke(issued.Add(time.Hour))

	assert.True(t, session.Revoked)
	assert.Equal(t, first, *session.RevokedAt)
}

func TestSession_RemainingTTL(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	session, err := NewSession("tok-1", "student-1", issued, DefaultSessionTTL)
	assert.NoError(t, err)

	assert.Equal(t, 24*time.Hour, session.RemainingTTL(issued))
	assert.Equal(t, time.Hour, session.RemainingTTL(session.ExpiresAt.Add(-time.Hour)))
	assert.Equal(t, time.Duration(0), session.RemainingTTL(session.ExpiresAt))
	assert.Equal(t, time.Duration(0), session.RemainingTTL(session.ExpiresAt.Add(time.Hour)))
}
