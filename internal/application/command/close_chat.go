package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/learnflow/learnflow-backend/internal/domain/chat"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/pkg/logger"
	"github.com/learnflow/learnflow-backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLOSE CHAT COMMAND
// Closed is terminal. Closing an already closed session succeeds and
// keeps the first end timestamp.
// ══════════════════════════════════════════════════════════════════════════════

// CloseChatCommand closes a chat session.
type CloseChatCommand struct {
	// SessionID is the session to close.
	SessionID string

	// StudentID is the caller (from the authenticated session).
	StudentID string
}

// Validate validates the command.
func (c CloseChatCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("close_chat: session_id is required")
	}
	if c.StudentID == "" {
		return errors.New("close_chat: student_id is required")
	}
	return nil
}

// CloseChatHandler handles the CloseChatCommand.
type CloseChatHandler struct {
	sessionRepo chat.SessionRepository
	messageRepo chat.MessageRepository
	emitter     EventEmitter
	clock       timeutil.Clock
	logger      *logger.Logger
}

// NewCloseChatHandler creates a new CloseChatHandler.
func NewCloseChatHandler(
	sessionRepo chat.SessionRepository,
	messageRepo chat.MessageRepository,
	emitter EventEmitter,
	clock timeutil.Clock,
	log *logger.Logger,
) *CloseChatHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Default()
	}
	return &CloseChatHandler{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		emitter:     emitter,
		clock:       clock,
		logger:      log,
	}
}

// Handle executes the close chat command.
func (h *CloseChatHandler) Handle(ctx context.Context, cmd CloseChatCommand) error {
	if err := cmd.Validate(); err != nil {
		return shared.WrapError("chat", "Close", shared.ErrInvalidInput, "invalid request", err)
	}

	session, err := h.sessionRepo.GetByID(ctx, cmd.SessionID)
	if err != nil {
		if errors.Is(err, chat.ErrSessionNotFound) {
			return shared.ErrChatSessionNotFound
		}
		return fmt.Errorf("close_chat: lookup: %w", err)
	}

	if session.StudentID != cmd.StudentID {
		return shared.NewDomainError("chat", "Close", shared.ErrForbidden, "session belongs to another student")
	}

	if !session.IsOpen() {
		// Double close is a no-op.
		return nil
	}

	if err := h.sessionRepo.Close(ctx, session.ID, h.clock.Now()); err != nil {
		return fmt.Errorf("close_chat: close: %w", err)
	}

	count, err := h.messageRepo.CountBySession(ctx, session.ID)
	if err != nil {
		count = 0
	}
	h.emitter.Emit(shared.NewChatSessionClosedEvent(session.ID, session.StudentID, count))

	h.logger.Info("chat session closed",
		logger.ChatSessionID(session.ID),
		logger.StudentID(session.StudentID),
		logger.Int("message_count", count),
	)

	return nil
}
