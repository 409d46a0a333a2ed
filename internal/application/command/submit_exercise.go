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
// SUBMIT EXERCISE COMMAND
// Records an attempt and announces it. Scoring is a separate command:
// a submission sits in the submitted state until evaluated.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitExerciseCommand contains the data for a code submission.
type SubmitExerciseCommand struct {
	// StudentID is the submitter (from the authenticated session).
	StudentID string

	// ExerciseID is the exercise being attempted.
	ExerciseID string

	// Code is the submitted solution.
	Code string

	// Language is the submission language (defaults to python).
	Language string
}

// Validate validates the command.
func (c SubmitExerciseCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("submit_exercise: student_id is required")
	}
	if c.ExerciseID == "" {
		return errors.New("submit_exercise: exercise_id is required")
	}
	if c.Code == "" {
		return errors.New("submit_exercise: code is required")
	}
	return nil
}

// SubmitExerciseResult contains the recorded submission.
type SubmitExerciseResult struct {
	Submission *exercise.Submission
}

// SubmitExerciseHandler handles the SubmitExerciseCommand.
type SubmitExerciseHandler struct {
	exerciseRepo   exercise.Repository
	submissionRepo exercise.SubmissionRepository
	emitter        EventEmitter
	clock          timeutil.Clock
	logger         *logger.Logger
}

// NewSubmitExerciseHandler creates a new handler.
func NewSubmitExerciseHandler(
	exerciseRepo exercise.Repository,
	submissionRepo exercise.SubmissionRepository,
	emitter EventEmitter,
	clock timeutil.Clock,
	log *logger.Logger,
) *SubmitExerciseHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Default()
	}
	return &SubmitExerciseHandler{
		exerciseRepo:   exerciseRepo,
		submissionRepo: submissionRepo,
		emitter:        emitter,
		clock:          clock,
		logger:         log,
	}
}

// Handle executes the submit exercise command.
func (h *SubmitExerciseHandler) Handle(ctx context.Context, cmd SubmitExerciseCommand) (*SubmitExerciseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("exercise", "Submit", shared.ErrInvalidInput, "invalid request", err)
	}

	ex, err := h.exerciseRepo.GetByID(ctx, cmd.ExerciseID)
	if err != nil {
		if errors.Is(err, exercise.ErrExerciseNotFound) {
			return nil, shared.ErrExerciseNotFound
		}
		return nil, fmt.Errorf("submit_exercise: lookup exercise: %w", err)
	}
	if !ex.Active {
		return nil, shared.NewDomainError("exercise", "Submit", shared.ErrInvalidState, "exercise is not accepting submissions")
	}

	language := cmd.Language
	if language == "" {
		language = "python"
	}

	sub, err := exercise.NewSubmission(uuid.NewString(), ex.ID, cmd.StudentID, cmd.Code, h.clock.Now())
	if err != nil {
		return nil, shared.WrapError("exercise", "Submit", shared.ErrInvalidInput, "invalid submission", err)
	}

	if err := h.submissionRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("submit_exercise: save: %w", err)
	}

	h.emitter.Emit(shared.NewSubmissionReceivedEvent(sub.ID, sub.StudentID, sub.ExerciseID, language, string(sub.Status)))

	h.logger.Info("submission received",
		logger.SubmissionID(sub.ID),
		logger.StudentID(sub.StudentID),
		logger.ExerciseID(sub.ExerciseID),
	)

	return &SubmitExerciseResult{Submission: sub}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORE SUBMISSION COMMAND
// Applies a grade exactly once, folds it into the progress rollup and
// publishes both outcomes. Progress status never moves backwards.
// ══════════════════════════════════════════════════════════════════════════════

// ScoreSubmissionCommand applies a grade to a submission.
type ScoreSubmissionCommand struct {
	// SubmissionID is the submission being graded.
	SubmissionID string

	// Score is the grade, 0-100.
	Score int

	// Feedback is optional reviewer commentary.
	Feedback string
}

// Validate validates the command.
func (c ScoreSubmissionCommand) Validate() error {
	if c.SubmissionID == "" {
		return errors.New("score_submission: submission_id is required")
	}
	if c.Score < 0 || c.Score > 100 {
		return errors.New("score_submission: score must be between 0 and 100")
	}
	return nil
}

// ScoreSubmissionResult contains the graded submission and updated rollup.
type ScoreSubmissionResult struct {
	Submission *exercise.Submission
	Progress   *exercise.Progress
}

// ScoreSubmissionHandler handles the ScoreSubmissionCommand.
type ScoreSubmissionHandler struct {
	submissionRepo exercise.SubmissionRepository
	progressRepo   exercise.ProgressRepository
	emitter        EventEmitter
	clock          timeutil.Clock
	logger         *logger.Logger
}

// NewScoreSubmissionHandler creates a new handler.
func NewScoreSubmissionHandler(
	submissionRepo exercise.SubmissionRepository,
	progressRepo exercise.ProgressRepository,
	emitter EventEmitter,
	clock timeutil.Clock,
	log *logger.Logger,
) *ScoreSubmissionHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Default()
	}
	return &ScoreSubmissionHandler{
		submissionRepo: submissionRepo,
		progressRepo:   progressRepo,
		emitter:        emitter,
		clock:          clock,
		logger:         log,
	}
}

// Handle executes the score submission command.
func (h *ScoreSubmissionHandler) Handle(ctx context.Context, cmd ScoreSubmissionCommand) (*ScoreSubmissionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("exercise", "Score", shared.ErrInvalidInput, "invalid request", err)
	}

	sub, err := h.submissionRepo.GetByID(ctx, cmd.SubmissionID)
	if err != nil {
		if errors.Is(err, exercise.ErrSubmissionNotFound) {
			return nil, shared.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("score_submission: lookup: %w", err)
	}

	now := h.clock.Now()
	if err := sub.ApplyScore(cmd.Score, cmd.Feedback, now); err != nil {
		if errors.Is(err, exercise.ErrAlreadyScored) {
			return nil, shared.NewDomainError("exercise", "Score", shared.ErrInvalidState, "submission already scored")
		}
		return nil, shared.WrapError("exercise", "Score", shared.ErrInvalidInput, "invalid score", err)
	}

	if err := h.submissionRepo.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("score_submission: save submission: %w", err)
	}

	progress, err := h.progressRepo.Get(ctx, sub.StudentID, sub.ExerciseID)
	if err != nil {
		if !errors.Is(err, exercise.ErrProgressNotFound) {
			return nil, fmt.Errorf("score_submission: load progress: %w", err)
		}
		progress = exercise.NewProgress(sub.StudentID, sub.ExerciseID, now)
	}
	progress.RecordAttempt(cmd.Score, now)

	if err := h.progressRepo.Upsert(ctx, progress); err != nil {
		return nil, fmt.Errorf("score_submission: save progress: %w", err)
	}

	h.emitter.Emit(shared.NewSubmissionScoredEvent(sub.ID, sub.StudentID, sub.ExerciseID, cmd.Score, string(sub.Status)))
	h.emitter.Emit(shared.NewProgressUpdatedEvent(sub.StudentID, sub.ExerciseID, string(progress.Status), progress.BestScore))

	h.logger.Info("submission scored",
		logger.SubmissionID(sub.ID),
		logger.StudentID(sub.StudentID),
		logger.ExerciseID(sub.ExerciseID),
		logger.Score(cmd.Score),
	)

	return &ScoreSubmissionResult{Submission: sub, Progress: progress}, nil
}
