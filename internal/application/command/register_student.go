package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/internal/domain/student"
	"github.com/learnflow/learnflow-backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER STUDENT COMMAND
// Creates a student account with a hashed credential. Email is the unique
// login identity; a duplicate registration is a conflict, not an update.
// ══════════════════════════════════════════════════════════════════════════════

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// RegisterStudentCommand contains the data to register a student.
type RegisterStudentCommand struct {
	// Email is the unique login identity.
	Email string

	// DisplayName is shown in the UI.
	DisplayName string

	// Password is the plaintext credential; only its hash is stored.
	Password string

	// GradeLevel is the student's preparation level (optional).
	GradeLevel string

	// Bio is a short self-description (optional).
	Bio string
}

// Validate validates the command.
func (c RegisterStudentCommand) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return errors.New("register_student: email is required")
	}
	if strings.TrimSpace(c.DisplayName) == "" {
		return errors.New("register_student: display_name is required")
	}
	if len(c.Password) < MinPasswordLength {
		return fmt.Errorf("register_student: password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// RegisterStudentResult contains the result of registration.
type RegisterStudentResult struct {
	// Student is the created account.
	Student *student.Student
}

// RegisterStudentHandler handles the RegisterStudentCommand.
type RegisterStudentHandler struct {
	studentRepo student.Repository
	hasher      PasswordHasher
	emitter     EventEmitter
	logger      *logger.Logger
}

// NewRegisterStudentHandler creates a new RegisterStudentHandler.
func NewRegisterStudentHandler(
	studentRepo student.Repository,
	hasher PasswordHasher,
	emitter EventEmitter,
	log *logger.Logger,
) *RegisterStudentHandler {
	if log == nil {
		log = logger.Default()
	}
	return &RegisterStudentHandler{
		studentRepo: studentRepo,
		hasher:      hasher,
		emitter:     emitter,
		logger:      log,
	}
}

// Handle executes the register student command.
func (h *RegisterStudentHandler) Handle(ctx context.Context, cmd RegisterStudentCommand) (*RegisterStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("student", "Register", shared.ErrInvalidInput, "invalid registration", err)
	}

	email := student.Email(cmd.Email).Normalized()
	if !email.IsValid() {
		return nil, shared.NewDomainError("student", "Register", shared.ErrInvalidInput, "invalid email address")
	}

	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("register_student: hash password: %w", err)
	}

	s, err := student.NewStudent(student.NewStudentParams{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  cmd.DisplayName,
		PasswordHash: hash,
		GradeLevel:   student.GradeLevel(cmd.GradeLevel),
		Bio:          cmd.Bio,
	})
	if err != nil {
		return nil, shared.WrapError("student", "Register", shared.ErrInvalidInput, "invalid student data", err)
	}

	if err := h.studentRepo.Create(ctx, s); err != nil {
		if errors.Is(err, student.ErrStudentAlreadyExists) {
			return nil, shared.ErrStudentAlreadyExists
		}
		return nil, fmt.Errorf("register_student: save: %w", err)
	}

	h.emitter.Emit(shared.NewStudentRegisteredEvent(s.ID, s.Email.String(), s.DisplayName, string(s.GradeLevel)))

	h.logger.Info("student registered",
		logger.StudentID(s.ID),
		logger.String("email", s.Email.String()),
	)

	return &RegisterStudentResult{Student: s}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DEACTIVATE STUDENT COMMAND
// Soft-deletes an account. The record stays; logins stop working.
// ══════════════════════════════════════════════════════════════════════════════

// DeactivateStudentCommand soft-deactivates a student account.
type DeactivateStudentCommand struct {
	// StudentID is the account to deactivate.
	StudentID string

	// Reason is an optional operator note.
	Reason string
}

// Validate validates the command.
func (c DeactivateStudentCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("deactivate_student: student_id is required")
	}
	return nil
}

// DeactivateStudentHandler handles the DeactivateStudentCommand.
type DeactivateStudentHandler struct {
	studentRepo student.Repository
	emitter     EventEmitter
	logger      *logger.Logger
}

// NewDeactivateStudentHandler creates a new handler.
func NewDeactivateStudentHandler(
	studentRepo student.Repository,
	emitter EventEmitter,
	log *logger.Logger,
) *DeactivateStudentHandler {
	if log == nil {
		log = logger.Default()
	}
	return &DeactivateStudentHandler{
		studentRepo: studentRepo,
		emitter:     emitter,
		logger:      log,
	}
}

// Handle executes the deactivate student command.
func (h *DeactivateStudentHandler) Handle(ctx context.Context, cmd DeactivateStudentCommand) error {
	if err := cmd.Validate(); err != nil {
		return shared.WrapError("student", "Deactivate", shared.ErrInvalidInput, "invalid request", err)
	}

	if err := h.studentRepo.Deactivate(ctx, cmd.StudentID); err != nil {
		if errors.Is(err, student.ErrStudentNotFound) {
			return shared.ErrStudentNotFound
		}
		return fmt.Errorf("deactivate_student: %w", err)
	}

	h.emitter.Emit(shared.NewStudentDeactivatedEvent(cmd.StudentID, cmd.Reason))

	h.logger.Info("student deactivated", logger.StudentID(cmd.StudentID))
	return nil
}
