package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/learnflow/learnflow-backend/internal/domain/chat"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/internal/domain/student"
	"github.com/learnflow/learnflow-backend/pkg/logger"
	"github.com/learnflow/learnflow-backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// OPEN CHAT COMMAND
// Opening always creates a fresh session; existing open sessions for the
// same student and topic are untouched.
// ══════════════════════════════════════════════════════════════════════════════

// OpenChatCommand contains the data to open a chat session.
type OpenChatCommand struct {
	// StudentID is the session owner (from the authenticated session).
	StudentID string

	// Topic is a free-form conversation label (optional).
	Topic string

	// AgentType selects the assistant persona. Empty means general.
	AgentType string
}

// Validate validates the command.
func (c OpenChatCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("open_chat: student_id is required")
	}
	if c.AgentType != "" && !chat.AgentType(c.AgentType).IsValid() {
		return fmt.Errorf("open_chat: invalid agent type: %s", c.AgentType)
	}
	return nil
}

// OpenChatResult contains the opened session.
type OpenChatResult struct {
	Session *chat.Session
}

// OpenChatHandler handles the OpenChatCommand.
type OpenChatHandler struct {
	studentRepo student.Repository
	sessionRepo chat.SessionRepository
	emitter     EventEmitter
	clock       timeutil.Clock
	logger      *logger.Logger
}

// NewOpenChatHandler creates a new OpenChatHandler.
func NewOpenChatHandler(
	studentRepo student.Repository,
	sessionRepo chat.SessionRepository,
	emitter EventEmitter,
	clock timeutil.Clock,
	log *logger.Logger,
) *OpenChatHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Default()
	}
	return &OpenChatHandler{
		studentRepo: studentRepo,
		sessionRepo: sessionRepo,
		emitter:     emitter,
		clock:       clock,
		logger:      log,
	}
}

// Handle executes the open chat command.
func (h *OpenChatHandler) Handle(ctx context.Context, cmd OpenChatCommand) (*OpenChatResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("chat", "Open", shared.ErrInvalidInput, "invalid request", err)
	}

	s, err := h.studentRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		if errors.Is(err, student.ErrStudentNotFound) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("open_chat: lookup student: %w", err)
	}
	if !s.Active {
		return nil, shared.ErrStudentInactive
	}

	session, err := chat.NewSession(
		uuid.NewString(),
		s.ID,
		strings.TrimSpace(cmd.Topic),
		chat.AgentType(cmd.AgentType),
		h.clock.Now(),
	)
	if err != nil {
		return nil, shared.WrapError("chat", "Open", shared.ErrInvalidInput, "invalid session data", err)
	}

	if err := h.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("open_chat: save: %w", err)
	}

	h.emitter.Emit(shared.NewChatSessionOpenedEvent(session.ID, session.StudentID, session.Topic, session.AgentType.String()))

	h.logger.Info("chat session opened",
		logger.ChatSessionID(session.ID),
		logger.StudentID(session.StudentID),
		logger.AgentType(session.AgentType.String()),
	)

	return &OpenChatResult{Session: session}, nil
}
