package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/learnflow/learnflow-backend/internal/domain/chat"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/pkg/logger"
	"github.com/learnflow/learnflow-backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEND CHAT MESSAGE COMMAND
// Appends the student's message, asks the assistant for a reply over the
// recent context window, and appends the reply. An upstream failure leaves
// the session open with the student's message retained: the student can
// simply send again.
// ══════════════════════════════════════════════════════════════════════════════

// SendChatMessageCommand contains the data to send a chat message.
type SendChatMessageCommand struct {
	// SessionID is the target chat session.
	SessionID string

	// StudentID is the sender (from the authenticated session).
	StudentID string

	// Content is the message text.
	Content string

	// Metadata is optional structured context (client info, code refs).
	Metadata map[string]interface{}

	// ContextLimit caps the history window sent upstream.
	// Zero means chat.DefaultContextLimit.
	ContextLimit int
}

// Validate validates the command.
func (c SendChatMessageCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("send_chat_message: session_id is required")
	}
	if c.StudentID == "" {
		return errors.New("send_chat_message: student_id is required")
	}
	if c.Content == "" {
		return errors.New("send_chat_message: content is required")
	}
	return nil
}

// SendChatMessageResult contains both transcript entries from the turn.
type SendChatMessageResult struct {
	// UserMessage is the appended student message.
	UserMessage *chat.Message

	// AssistantMessage is the appended reply.
	AssistantMessage *chat.Message
}

// SendChatMessageHandler handles the SendChatMessageCommand.
type SendChatMessageHandler struct {
	sessionRepo chat.SessionRepository
	messageRepo chat.MessageRepository
	responder   AssistantResponder
	emitter     EventEmitter
	clock       timeutil.Clock
	logger      *logger.Logger
}

// NewSendChatMessageHandler creates a new handler.
func NewSendChatMessageHandler(
	sessionRepo chat.SessionRepository,
	messageRepo chat.MessageRepository,
	responder AssistantResponder,
	emitter EventEmitter,
	clock timeutil.Clock,
	log *logger.Logger,
) *SendChatMessageHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Default()
	}
	return &SendChatMessageHandler{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		responder:   responder,
		emitter:     emitter,
		clock:       clock,
		logger:      log,
	}
}

// Handle executes the send chat message command.
func (h *SendChatMessageHandler) Handle(ctx context.Context, cmd SendChatMessageCommand) (*SendChatMessageResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("chat", "SendMessage", shared.ErrInvalidInput, "invalid request", err)
	}

	session, err := h.sessionRepo.GetByID(ctx, cmd.SessionID)
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			return nil, shared.ErrChatSessionNotFound
		}
		return nil, fmt.Errorf("send_chat_message: lookup session: %w", err)
	}

	if session.StudentID != cmd.StudentID {
		return nil, shared.NewDomainError("chat", "SendMessage", shared.ErrForbidden, "session belongs to another student")
	}

	if err := session.CheckAppendable(); err != nil {
		return nil, shared.ErrChatSessionClosed
	}

	userMsg, err := h.appendMessage(ctx, session.ID, chat.RoleUser, cmd.Content, cmd.Metadata, h.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("send_chat_message: append user message: %w", err)
	}
	h.emitter.Emit(shared.NewChatMessageSentEvent(session.ID, session.StudentID, chat.RoleUser.String(), userMsg.Content))

	limit := cmd.ContextLimit
	if limit <= 0 {
		limit = chat.DefaultContextLimit
	}
	history, err := h.messageRepo.RecentContext(ctx, session.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("send_chat_message: load context: %w", err)
	}

	reply, err := h.responder.Respond(ctx, session.AgentType, history)
	if err != nil {
		// The session stays open and the student's message stays in the
		// transcript. The caller maps this to a 503.
		h.logger.Warn("assistant upstream failed",
			logger.ChatSessionID(session.ID),
			logger.AgentType(session.AgentType.String()),
			logger.Err(err),
		)
		return nil, err
	}

	// The reply never predates the student's turn, even if the clock
	// stepped backwards while the upstream call was in flight.
	replyAt := chat.NextTimestamp(userMsg.CreatedAt, h.clock.Now())
	assistantMsg, err := h.appendMessage(ctx, session.ID, chat.RoleAssistant, reply, nil, replyAt)
	if err != nil {
		return nil, fmt.Errorf("send_chat_message: append assistant message: %w", err)
	}
	h.emitter.Emit(shared.NewChatMessageSentEvent(session.ID, session.StudentID, chat.RoleAssistant.String(), assistantMsg.Content))

	return &SendChatMessageResult{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}, nil
}

// appendMessage builds and stores one transcript entry. The repository's
// insert path clamps the timestamp so per-session ordering holds even when
// concurrent turns race.
func (h *SendChatMessageHandler) appendMessage(ctx context.Context, sessionID string, role chat.Role, content string, metadata map[string]interface{}, at time.Time) (*chat.Message, error) {
	msg, err := chat.NewMessage(uuid.NewString(), sessionID, role, content, metadata, at)
	if err != nil {
		return nil, err
	}
	if err := h.messageRepo.Append(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
