// Package chat contains domain entities and business logic for
// conversation threads between a student and an AI assistant.
// A chat session is opened on the first message, collects an ordered
// transcript, and moves to a terminal closed state exactly once.
// This is a pure domain layer with zero external dependencies.
package chat

import (
	"errors"
	"time"
)

// Domain errors for the chat package.
var (
	ErrInvalidSessionID  = errors.New("chat: invalid session ID")
	ErrInvalidStudentID  = errors.New("chat: invalid student ID")
	ErrInvalidMessageID  = errors.New("chat: invalid message ID")
	ErrInvalidAgentType  = errors.New("chat: invalid agent type")
	ErrInvalidRole       = errors.New("chat: invalid message role")
	ErrEmptyContent      = errors.New("chat: message content cannot be empty")
	ErrSessionClosed     = errors.New("chat: session is closed")
	ErrSessionNotFound   = errors.New("chat: session not found")
	ErrTimestampOrdering = errors.New("chat: message timestamp precedes previous message")
)

// AgentType identifies the assistant persona answering in a session.
// The set is closed: the responder maps each value to a system prompt,
// there is no open-ended dispatch.
type AgentType string

const (
	AgentGeneral  AgentType = "general"
	AgentConcepts AgentType = "concepts"
	AgentDebug    AgentType = "debug"
	AgentExercise AgentType = "exercise"
)

// IsValid checks that the agent type is one of the known personas.
func (a AgentType) IsValid() bool {
	switch a {
	case AgentGeneral, AgentConcepts, AgentDebug, AgentExercise:
		return true
	default:
		return false
	}
}

// String returns the string representation of the agent type.
func (a AgentType) String() string {
	return string(a)
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid checks that the role is known.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Session represents a bounded conversation thread.
// State machine: open -> closed, closed is terminal.
type Session struct {
	ID        string
	StudentID string
	Topic     string
	AgentType AgentType
	Active    bool
	StartedAt time.Time
	EndedAt   *time.Time // nil while the session is open
}

// NewSession opens a new conversation thread. Sessions always start
// open; prior sessions for the same student and topic are not reused.
func NewSession(id, studentID, topic string, agentType AgentType, startedAt time.Time) (*Session, error) {
	if id == "" {
		return nil, ErrInvalidSessionID
	}
	if studentID == "" {
		return nil, ErrInvalidStudentID
	}
	if agentType == "" {
		agentType = AgentGeneral
	}
	if !agentType.IsValid() {
		return nil, ErrInvalidAgentType
	}

	return &Session{
		ID:        id,
		StudentID: studentID,
		Topic:     topic,
		AgentType: agentType,
		Active:    true,
		StartedAt: startedAt.UTC(),
	}, nil
}

// Close transitions the session to the terminal closed state.
// Closing an already closed session is a no-op and keeps the end
// timestamp set by the first close.
func (s *Session) Close(at time.Time) {
	if !s.Active {
		return
	}

	at = at.UTC()
	s.Active = false
	s.EndedAt = &at
}

// IsOpen reports whether messages may still be appended.
func (s *Session) IsOpen() bool {
	return s.Active
}

// CheckAppendable returns ErrSessionClosed for a closed session.
func (s *Session) CheckAppendable() error {
	if !s.Active {
		return ErrSessionClosed
	}
	return nil
}

// Message is an immutable, ordered entry in a session transcript.
type Message struct {
	ID        string
	SessionID string
	Role      Role
	Content   string
	Metadata  map[string]interface{}
	CreatedAt time.Time
}

// NewMessage creates a transcript entry. Messages are never mutated
// after creation; ordering is by CreatedAt, monotonic per session.
func NewMessage(id, sessionID string, role Role, content string, metadata map[string]interface{}, createdAt time.Time) (*Message, error) {
	if id == "" {
		return nil, ErrInvalidMessageID
	}
	if sessionID == "" {
		return nil, ErrInvalidSessionID
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	if content == "" {
		return nil, ErrEmptyContent
	}

	return &Message{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: createdAt.UTC(),
	}, nil
}

// NextTimestamp returns the creation time for a message appended after
// prev. Wall clocks can step backwards between requests; the transcript
// invariant requires non-decreasing timestamps per session, so now is
// clamped to the previous message's timestamp when it lags behind.
func NextTimestamp(prev, now time.Time) time.Time {
	now = now.UTC()
	if prev.IsZero() || !now.Before(prev) {
		return now
	}
	return prev.UTC()
}
