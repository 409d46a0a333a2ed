package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnflow/learnflow-backend/internal/domain/exercise"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS QUERY
// Returns a student's per-exercise rollups plus a summary: how many
// exercises were attempted, completed and mastered, and the average
// best score across attempted exercises.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery contains the progress request parameters.
type GetProgressQuery struct {
	// StudentID is the student whose progress to load.
	StudentID string

	// ExerciseID restricts the result to one exercise when non-empty.
	ExerciseID string
}

// Validate validates the query.
func (q GetProgressQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("get_progress: student_id is required")
	}
	return nil
}

// ProgressDTO is the read model for one rollup.
type ProgressDTO struct {
	ExerciseID  string     `json:"exercise_id"`
	Status      string     `json:"status"`
	BestScore   int        `json:"best_score"`
	Attempts    int        `json:"attempts"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ProgressSummaryDTO aggregates a student's standing.
type ProgressSummaryDTO struct {
	Attempted    int `json:"attempted"`
	Completed    int `json:"completed"`
	Mastered     int `json:"mastered"`
	AverageScore int `json:"average_score"`
}

// GetProgressResult contains the rollups and summary.
type GetProgressResult struct {
	StudentID string             `json:"student_id"`
	Progress  []ProgressDTO      `json:"progress"`
	Summary   ProgressSummaryDTO `json:"summary"`
}

// GetProgressHandler handles the GetProgressQuery.
type GetProgressHandler struct {
	progressRepo exercise.ProgressRepository
}

// NewGetProgressHandler creates a new handler.
func NewGetProgressHandler(progressRepo exercise.ProgressRepository) *GetProgressHandler {
	return &GetProgressHandler{progressRepo: progressRepo}
}

// Handle executes the get progress query.
func (h *GetProgressHandler) Handle(ctx context.Context, q GetProgressQuery) (*GetProgressResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("exercise", "GetProgress", shared.ErrInvalidInput, "invalid request", err)
	}

	var (
		rollups []*exercise.Progress
		err     error
	)
	if q.ExerciseID != "" {
		var p *exercise.Progress
		p, err = h.progressRepo.Get(ctx, q.StudentID, q.ExerciseID)
		if err == nil {
			rollups = []*exercise.Progress{p}
		} else if errors.Is(err, exercise.ErrProgressNotFound) {
			// No attempts yet is an empty result, not an error.
			rollups, err = nil, nil
		}
	} else {
		rollups, err = h.progressRepo.ListByStudent(ctx, q.StudentID)
	}
	if err != nil {
		return nil, fmt.Errorf("get_progress: %w", err)
	}

	result := &GetProgressResult{
		StudentID: q.StudentID,
		Progress:  make([]ProgressDTO, 0, len(rollups)),
	}

	totalScore := 0
	for _, p := range rollups {
		result.Progress = append(result.Progress, ProgressDTO{
			ExerciseID:  p.ExerciseID,
			Status:      string(p.Status),
			BestScore:   p.BestScore,
			Attempts:    p.Attempts,
			CompletedAt: p.CompletedAt,
			UpdatedAt:   p.UpdatedAt,
		})

		result.Summary.Attempted++
		totalScore += p.BestScore
		switch p.Status {
		case exercise.ProgressMastered:
			result.Summary.Mastered++
			result.Summary.Completed++
		case exercise.ProgressCompleted:
			result.Summary.Completed++
		}
	}
	if result.Summary.Attempted > 0 {
		result.Summary.AverageScore = totalScore / result.Summary.Attempted
	}

	return result, nil
}
