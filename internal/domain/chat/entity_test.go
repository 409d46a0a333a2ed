package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSession(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	session, err := NewSession("sess-1", "student-1", "pointers", AgentDebug, started)
	assert.NoError(t, err)
	assert.True(t, session.IsOpen())
	assert.Equal(t, AgentDebug, session.AgentType)
	assert.Equal(t, started, session.StartedAt)
	assert.Nil(t, session.EndedAt)
}

func TestNewSession_DefaultAgent(t *testing.T) {
	session, err := NewSession("sess-1", "student-1", "", "", time.Now())
	assert.NoError(t, err)
	assert.Equal(t, AgentGeneral, session.AgentType)
}

func TestNewSession_UnknownAgent(t *testing.T) {
	_, err := NewSession("sess-1", "student-1", "", AgentType("tutor"), time.Now())
	assert.ErrorIs(t, err, ErrInvalidAgentType)
}

func TestSession_Close_Idempotent(t *testing.T) {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	session, err := NewSession("sess-1", "student-1", "", AgentGeneral, started)
	assert.NoError(t, err)

	first := started.Add(time.Hour)
	session.Close(first)
	assert.False(t, session.IsOpen())
	assert.Equal(t, first, *session.EndedAt)

	// Second close keeps the original end timestamp.
	session.Close(started.Add(2 * time.Hour))
	assert.Equal(t, first, *session.EndedAt)
}

func TestSession_CheckAppendable(t *testing.T) {
	session, err := NewSession("sess-1", "student-1", "", AgentGeneral, time.Now())
	assert.NoError(t, err)
	assert.NoError(t, session.CheckAppendable())

	session.Close(time.Now())
	assert.ErrorIs(t, session.CheckAppendable(), ErrSessionClosed)
}

func TestNewMessage_Validation(t *testing.T) {
	now := time.Now()

	_, err := NewMessage("", "sess-1", RoleUser, "hi", nil, now)
	assert.ErrorIs(t, err, ErrInvalidMessageID)

	_, err = NewMessage("msg-1", "sess-1", Role("system"), "hi", nil, now)
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = NewMessage("msg-1", "sess-1", RoleUser, "", nil, now)
	assert.ErrorIs(t, err, ErrEmptyContent)

	msg, err := NewMessage("msg-1", "sess-1", RoleAssistant, "hello", map[string]interface{}{"model": "gemini"}, now)
	assert.NoError(t, err)
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "gemini", msg.Metadata["model"])
}

func TestNextTimestamp_Monotonic(t *testing.T) {
	prev := time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC)

	// Clock moved forward: use the current time.
	later := prev.Add(time.Second)
	assert.Equal(t, later, NextTimestamp(prev, later))

	// Clock stepped backwards: clamp to the previous timestamp.
	assert.Equal(t, prev, NextTimestamp(prev, prev.Add(-time.Second)))

	// Equal timestamps are allowed.
	assert.Equal(t, prev, NextTimestamp(prev, prev))

	// First message of a session has nothing to clamp against.
	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, first, NextTimestamp(time.Time{}, first))
}

func TestAgentType_IsValid(t *testing.T) {
	for _, a := range []AgentType{AgentGeneral, AgentConcepts, AgentDebug, AgentExercise} {
		assert.True(t, a.IsValid(), a.String())
	}
	assert.False(t, AgentType("ml").IsValid())
}
