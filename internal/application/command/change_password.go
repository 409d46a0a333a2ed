package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/internal/domain/student"
	"github.com/learnflow/learnflow-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHANGE PASSWORD COMMAND
// The old credential must verify before the new hash is written.
// Existing sessions stay valid; only the credential changes.
// ══════════════════════════════════════════════════════════════════════════════

// ChangePasswordCommand contains the data to change a password.
type ChangePasswordCommand struct {
	// StudentID identifies the account (from the authenticated session).
	StudentID string

	// OldPassword is the current plaintext credential.
	OldPassword string

	// NewPassword is the replacement plaintext credential.
	NewPassword string
}

// Validate validates the command.
func (c ChangePasswordCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("change_password: student_id is required")
	}
	if c.OldPassword == "" {
		return errors.New("change_password: old_password is required")
	}
	if len(c.NewPassword) < MinPasswordLength {
		return fmt.Errorf("change_password: new password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// ChangePasswordHandler handles the ChangePasswordCommand.
type ChangePasswordHandler struct {
	studentRepo student.Repository
	hasher      PasswordHasher
	emitter     EventEmitter
	logger      *logger.Logger
}

// NewChangePasswordHandler creates a new handler.
func NewChangePasswordHandler(
	studentRepo student.Repository,
	hasher PasswordHasher,
	emitter EventEmitter,
	log *logger.Logger,
) *ChangePasswordHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ChangePasswordHandler{
		studentRepo: studentRepo,
		hasher:      hasher,
		emitter:     emitter,
		logger:      log,
	}
}

// Handle executes the change password command.
func (h *ChangePasswordHandler) Handle(ctx context.Context, cmd ChangePasswordCommand) error {
	if err := cmd.Validate(); err != nil {
		return shared.WrapError("student", "ChangePassword", shared.ErrInvalidInput, "invalid request", err)
	}

	s, err := h.studentRepo.GetByID(ctx, cmd.StudentID)
	if err != nil {
		if errors.Is(err, student.ErrStudentNotFound) {
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("change_password: lookup: %w", err)
	}

	if !h.hasher.Verify(s.PasswordHash, cmd.OldPassword) {
		return shared.NewDomainError("student", "ChangePassword", shared.ErrUnauthorized, "old password is incorrect")
	}

	newHash, err := h.hasher.Hash(cmd.NewPassword)
	if err != nil {
		return fmt.Errorf("change_password: hash: %w", err)
	}

	if err := s.ChangePasswordHash(newHash); err != nil {
		return shared.WrapError("student", "ChangePassword", shared.ErrInvalidInput, "invalid new password", err)
	}

	if err := h.studentRepo.Update(ctx, s); err != nil {
		return fmt.Errorf("change_password: save: %w", err)
	}

	h.emitter.Emit(shared.NewStudentPasswordChangedEvent(s.ID))

	h.logger.Info("password changed", logger.StudentID(s.ID))
	return nil
}
