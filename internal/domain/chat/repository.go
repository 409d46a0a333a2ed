package chat

import (
	"context"
	"time"
)

// DefaultContextLimit bounds how much history the assistant sees.
const DefaultContextLimit = 10

// SessionListOptions controls session pagination.
type SessionListOptions struct {
	Limit      int
	Offset     int
	OnlyActive bool
}

// DefaultSessionListOptions returns sane pagination defaults.
func DefaultSessionListOptions() SessionListOptions {
	return SessionListOptions{Limit: 20, Offset: 0}
}

// SessionRepository persists conversation threads.
type SessionRepository interface {
	// Create stores a newly opened session.
	Create(ctx context.Context, session *Session) error

	// GetByID returns a session or ErrSessionNotFound.
	GetByID(ctx context.Context, id string) (*Session, error)

	// ListByStudent returns the student's sessions, newest first.
	ListByStudent(ctx context.Context, studentID string, opts SessionListOptions) ([]*Session, error)

	// Close marks the session closed, keeping the first end timestamp.
	// Closing an already closed session succeeds without changes.
	Close(ctx context.Context, id string, endedAt time.Time) error

	// CloseStale closes open sessions whose last activity is before
	// cutoff and returns how many were closed.
	CloseStale(ctx context.Context, cutoff time.Time) (int, error)
}

// MessageRepository persists transcript entries.
type MessageRepository interface {
	// Append stores a message at the tail of the session transcript.
	// Implementations must keep per-session timestamps non-decreasing:
	// a message never sorts before one appended earlier.
	Append(ctx context.Context, msg *Message) error

	// ListBySession returns the full transcript in chronological order.
	ListBySession(ctx context.Context, sessionID string) ([]*Message, error)

	// RecentContext returns the last limit messages of the session in
	// chronological order, for prompting the assistant.
	RecentContext(ctx context.Context, sessionID string, limit int) ([]*Message, error)

	// CountBySession returns the transcript length.
	CountBySession(ctx context.Context, sessionID string) (int, error)

	// LastTimestamp returns the newest message timestamp in the
	// session, or the zero time for an empty transcript.
	LastTimestamp(ctx context.Context, sessionID string) (time.Time, error)
}
