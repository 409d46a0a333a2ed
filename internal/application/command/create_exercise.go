package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/learnflow/learnflow-backend/internal/domain/exercise"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/pkg/logger"
	"github.com/learnflow/learnflow-backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE EXERCISE COMMAND
// Publishes a new practice task to the catalog.
// ══════════════════════════════════════════════════════════════════════════════

// CreateExerciseCommand contains the data for a new exercise.
type CreateExerciseCommand struct {
	// Title is the exercise title (required).
	Title string

	// Description is the task statement.
	Description string

	// Difficulty is beginner, intermediate or advanced (defaults to
	// beginner).
	Difficulty string

	// Topic groups exercises in the catalog.
	Topic string

	// StarterCode is the scaffold shown in the editor.
	StarterCode string

	// ExpectedOutput is what a correct run should print.
	ExpectedOutput string

	// TestCases describe graded checks, one free-form object per case.
	TestCases []map[string]interface{}

	// Hints are revealed to the student one at a time.
	Hints []string

	// SolutionCode is the reference solution. It is stored but never
	// served to students.
	SolutionCode string
}

// Validate validates the command.
func (c CreateExerciseCommand) Validate() error {
	if c.Title == "" {
		return errors.New("create_exercise: title is required")
	}
	if c.Difficulty != "" && !exercise.Difficulty(c.Difficulty).IsValid() {
		return errors.New("create_exercise: unknown difficulty")
	}
	return nil
}

// CreateExerciseResult contains the published exercise.
type CreateExerciseResult struct {
	Exercise *exercise.Exercise
}

// CreateExerciseHandler handles the CreateExerciseCommand.
type CreateExerciseHandler struct {
	exerciseRepo exercise.Repository
	clock        timeutil.Clock
	logger       *logger.Logger
}

// NewCreateExerciseHandler creates a new handler.
func NewCreateExerciseHandler(exerciseRepo exercise.Repository, clock timeutil.Clock, log *logger.Logger) *CreateExerciseHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Default()
	}
	return &CreateExerciseHandler{exerciseRepo: exerciseRepo, clock: clock, logger: log}
}

// Handle executes the create exercise command.
func (h *CreateExerciseHandler) Handle(ctx context.Context, cmd CreateExerciseCommand) (*CreateExerciseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("exercise", "Create", shared.ErrInvalidInput, "invalid request", err)
	}

	ex, err := exercise.NewExercise(
		uuid.NewString(),
		cmd.Title,
		cmd.Description,
		cmd.Topic,
		exercise.Difficulty(cmd.Difficulty),
		exercise.Content{
			StarterCode:    cmd.StarterCode,
			ExpectedOutput: cmd.ExpectedOutput,
			TestCases:      cmd.TestCases,
			Hints:          cmd.Hints,
			SolutionCode:   cmd.SolutionCode,
		},
		h.clock.Now(),
	)
	if err != nil {
		return nil, shared.WrapError("exercise", "Create", shared.ErrInvalidInput, "invalid exercise", err)
	}

	if err := h.exerciseRepo.Create(ctx, ex); err != nil {
		return nil, fmt.Errorf("create_exercise: save: %w", err)
	}

	h.logger.Info("exercise published",
		logger.ExerciseID(ex.ID),
		logger.String("difficulty", string(ex.Difficulty)),
	)

	return &CreateExerciseResult{Exercise: ex}, nil
}
