package http

import (
	"net/http"
	"time"

	"github.com/learnflow/learnflow-backend/internal/application/command"
	"github.com/learnflow/learnflow-backend/internal/application/query"
	"github.com/learnflow/learnflow-backend/internal/domain/chat"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHAT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type openChatRequest struct {
	Topic     string `json:"topic,omitempty"`
	AgentType string `json:"agent_type,omitempty"`
}

type chatSessionResponse struct {
	ID        string     `json:"id"`
	Topic     string     `json:"topic,omitempty"`
	AgentType string     `json:"agent_type"`
	Active    bool       `json:"active"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func toChatSessionResponse(s *chat.Session) chatSessionResponse {
	return chatSessionResponse{
		ID:        s.ID,
		Topic:     s.Topic,
		AgentType: s.AgentType.String(),
		Active:    s.Active,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
	}
}

type chatMessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toChatMessageResponse(m *chat.Message) chatMessageResponse {
	return chatMessageResponse{
		ID:        m.ID,
		Role:      m.Role.String(),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

// handleOpenChat handles POST /api/v1/chats
func (s *Server) handleOpenChat(w http.ResponseWriter, r *http.Request) {
	var req openChatRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.OpenChat.Handle(r.Context(), command.OpenChatCommand{
		StudentID: studentFrom(r).ID,
		Topic:     req.Topic,
		AgentType: req.AgentType,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toChatSessionResponse(result.Session))
}

// handleListChats handles GET /api/v1/chats
func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.ListChatSessions.Handle(r.Context(), query.ListChatSessionsQuery{
		StudentID:  studentFrom(r).ID,
		Limit:      getQueryParamInt(r, "limit", 0),
		Offset:     getQueryParamInt(r, "offset", 0),
		OnlyActive: getQueryParamBool(r, "active"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleChatHistory handles GET /api/v1/chats/{id}/messages
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetChatHistory.Handle(r.Context(), query.GetChatHistoryQuery{
		SessionID: r.PathValue("id"),
		StudentID: studentFrom(r).ID,
		Limit:     getQueryParamInt(r, "limit", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type sendMessageResponse struct {
	UserMessage      chatMessageResponse `json:"user_message"`
	AssistantMessage chatMessageResponse `json:"assistant_message"`
}

// handleSendMessage handles POST /api/v1/chats/{id}/messages
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.SendChatMessage.Handle(r.Context(), command.SendChatMessageCommand{
		SessionID: r.PathValue("id"),
		StudentID: studentFrom(r).ID,
		Content:   req.Content,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		UserMessage:      toChatMessageResponse(result.UserMessage),
		AssistantMessage: toChatMessageResponse(result.AssistantMessage),
	})
}

// handleCloseChat handles POST /api/v1/chats/{id}/close
func (s *Server) handleCloseChat(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.CloseChat.Handle(r.Context(), command.CloseChatCommand{
		SessionID: r.PathValue("id"),
		StudentID: studentFrom(r).ID,
	}); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}
