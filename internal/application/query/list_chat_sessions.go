package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnflow/learnflow-backend/internal/domain/chat"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST CHAT SESSIONS QUERY
// Returns a student's conversation threads, newest first.
// ══════════════════════════════════════════════════════════════════════════════

// ListChatSessionsQuery contains the listing parameters.
type ListChatSessionsQuery struct {
	// StudentID is the owner of the sessions.
	StudentID string

	// Limit caps the page size (default 20, max 100).
	Limit int

	// Offset skips the first N sessions.
	Offset int

	// OnlyActive restricts the listing to open sessions.
	OnlyActive bool
}

// Validate validates the query and applies pagination defaults.
func (q *ListChatSessionsQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("list_chat_sessions: student_id is required")
	}
	if q.Limit <= 0 {
		q.Limit = chat.DefaultSessionListOptions().Limit
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return nil
}

// ChatSessionDTO is the read model for one conversation thread.
type ChatSessionDTO struct {
	ID           string     `json:"id"`
	Topic        string     `json:"topic,omitempty"`
	AgentType    string     `json:"agent_type"`
	Active       bool       `json:"active"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	MessageCount int        `json:"message_count"`

	// LastMessageAt is nil for an empty transcript.
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// ListChatSessionsResult contains the page of sessions.
type ListChatSessionsResult struct {
	Sessions []ChatSessionDTO `json:"sessions"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// ListChatSessionsHandler handles the ListChatSessionsQuery.
type ListChatSessionsHandler struct {
	sessionRepo chat.SessionRepository
	messageRepo chat.MessageRepository
}

// NewListChatSessionsHandler creates a new handler.
func NewListChatSessionsHandler(sessionRepo chat.SessionRepository, messageRepo chat.MessageRepository) *ListChatSessionsHandler {
	return &ListChatSessionsHandler{sessionRepo: sessionRepo, messageRepo: messageRepo}
}

// Handle executes the list chat sessions query.
func (h *ListChatSessionsHandler) Handle(ctx context.Context, q ListChatSessionsQuery) (*ListChatSessionsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("chat", "ListSessions", shared.ErrInvalidInput, "invalid request", err)
	}

	sessions, err := h.sessionRepo.ListByStudent(ctx, q.StudentID, chat.SessionListOptions{
		Limit:      q.Limit,
		Offset:     q.Offset,
		OnlyActive: q.OnlyActive,
	})
	if err != nil {
		return nil, fmt.Errorf("list_chat_sessions: %w", err)
	}

	result := &ListChatSessionsResult{
		Sessions: make([]ChatSessionDTO, 0, len(sessions)),
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	for _, s := range sessions {
		dto := ChatSessionDTO{
			ID:        s.ID,
			Topic:     s.Topic,
			AgentType: s.AgentType.String(),
			Active:    s.Active,
			StartedAt: s.StartedAt,
			EndedAt:   s.EndedAt,
		}
		// Counts and timestamps are best effort, a listing should not
		// fail because one transcript could not be read.
		if count, err := h.messageRepo.CountBySession(ctx, s.ID); err == nil {
			dto.MessageCount = count
		}
		if last, err := h.messageRepo.LastTimestamp(ctx, s.ID); err == nil && !last.IsZero() {
			dto.LastMessageAt = &last
		}
		result.Sessions = append(result.Sessions, dto)
	}

	return result, nil
}
