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
// GET CHAT HISTORY QUERY
// Returns a session's transcript in chronological order. Only the
// session owner may read it.
// ══════════════════════════════════════════════════════════════════════════════

// GetChatHistoryQuery contains the transcript request parameters.
type GetChatHistoryQuery struct {
	// SessionID identifies the conversation thread.
	SessionID string

	// StudentID is the requesting student, used for the ownership check.
	StudentID string

	// Limit caps the transcript tail. Zero returns the full transcript.
	Limit int
}

// Validate validates the query.
func (q GetChatHistoryQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("get_chat_history: session_id is required")
	}
	if q.StudentID == "" {
		return errors.New("get_chat_history: student_id is required")
	}
	if q.Limit < 0 {
		return errors.New("get_chat_history: limit must not be negative")
	}
	return nil
}

// ChatMessageDTO is the read model for one transcript entry.
type ChatMessageDTO struct {
	ID        string                 `json:"id"`
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// GetChatHistoryResult contains the session and its transcript.
type GetChatHistoryResult struct {
	Session  ChatSessionDTO   `json:"session"`
	Messages []ChatMessageDTO `json:"messages"`
}

// GetChatHistoryHandler handles the GetChatHistoryQuery.
type GetChatHistoryHandler struct {
	sessionRepo chat.SessionRepository
	messageRepo chat.MessageRepository
}

// NewGetChatHistoryHandler creates a new handler.
func NewGetChatHistoryHandler(sessionRepo chat.SessionRepository, messageRepo chat.MessageRepository) *GetChatHistoryHandler {
	return &GetChatHistoryHandler{sessionRepo: sessionRepo, messageRepo: messageRepo}
}

// Handle executes the get chat history query.
func (h *GetChatHistoryHandler) Handle(ctx context.Context, q GetChatHistoryQuery) (*GetChatHistoryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("chat", "GetHistory", shared.ErrInvalidInput, "invalid request", err)
	}

	session, err := h.sessionRepo.GetByID(ctx, q.SessionID)
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			return nil, shared.ErrChatSessionNotFound
		}
		return nil, fmt.Errorf("get_chat_history: lookup session: %w", err)
	}
	if session.StudentID != q.StudentID {
		return nil, shared.NewDomainError("chat", "GetHistory", shared.ErrForbidden, "session belongs to another student")
	}

	var messages []*chat.Message
	if q.Limit > 0 {
		messages, err = h.messageRepo.RecentContext(ctx, session.ID, q.Limit)
	} else {
		messages, err = h.messageRepo.ListBySession(ctx, session.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("get_chat_history: load transcript: %w", err)
	}

	result := &GetChatHistoryResult{
		Session: ChatSessionDTO{
			ID:           session.ID,
			Topic:        session.Topic,
			AgentType:    session.AgentType.String(),
			Active:       session.Active,
			StartedAt:    session.StartedAt,
			EndedAt:      session.EndedAt,
			MessageCount: len(messages),
		},
		Messages: make([]ChatMessageDTO, 0, len(messages)),
	}
	for _, m := range messages {
		result.Messages = append(result.Messages, ChatMessageDTO{
			ID:        m.ID,
			Role:      m.Role.String(),
			Content:   m.Content,
			Metadata:  m.Metadata,
			CreatedAt: m.CreatedAt,
		})
	}

	return result, nil
}
