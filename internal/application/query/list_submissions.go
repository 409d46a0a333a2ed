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
// LIST SUBMISSIONS QUERY
// Returns a student's attempt history, newest first, optionally
// narrowed to one exercise.
// ══════════════════════════════════════════════════════════════════════════════

// ListSubmissionsQuery contains the listing parameters.
type ListSubmissionsQuery struct {
	// StudentID is the submitter.
	StudentID string

	// ExerciseID restricts the listing to one exercise when non-empty.
	ExerciseID string

	// Limit caps the page size (default 20, max 100). Ignored when
	// ExerciseID is set.
	Limit int

	// Offset skips the first N submissions. Ignored when ExerciseID is
	// set.
	Offset int
}

// Validate validates the query and applies pagination defaults.
func (q *ListSubmissionsQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("list_submissions: student_id is required")
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return nil
}

// SubmissionDTO is the read model for one attempt.
type SubmissionDTO struct {
	ID          string     `json:"id"`
	ExerciseID  string     `json:"exercise_id"`
	Status      string     `json:"status"`
	Score       *int       `json:"score,omitempty"`
	Feedback    string     `json:"feedback,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ScoredAt    *time.Time `json:"scored_at,omitempty"`
}

// ListSubmissionsResult contains the page of submissions.
type ListSubmissionsResult struct {
	Submissions []SubmissionDTO `json:"submissions"`
}

// ListSubmissionsHandler handles the ListSubmissionsQuery.
type ListSubmissionsHandler struct {
	submissionRepo exercise.SubmissionRepository
}

// NewListSubmissionsHandler creates a new handler.
func NewListSubmissionsHandler(submissionRepo exercise.SubmissionRepository) *ListSubmissionsHandler {
	return &ListSubmissionsHandler{submissionRepo: submissionRepo}
}

// Handle executes the list submissions query.
func (h *ListSubmissionsHandler) Handle(ctx context.Context, q ListSubmissionsQuery) (*ListSubmissionsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("exercise", "ListSubmissions", shared.ErrInvalidInput, "invalid request", err)
	}

	var (
		subs []*exercise.Submission
		err  error
	)
	if q.ExerciseID != "" {
		subs, err = h.submissionRepo.ListByExercise(ctx, q.StudentID, q.ExerciseID)
	} else {
		subs, err = h.submissionRepo.ListByStudent(ctx, q.StudentID, q.Limit, q.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list_submissions: %w", err)
	}

	result := &ListSubmissionsResult{Submissions: make([]SubmissionDTO, 0, len(subs))}
	for _, s := range subs {
		result.Submissions = append(result.Submissions, SubmissionDTO{
			ID:          s.ID,
			ExerciseID:  s.ExerciseID,
			Status:      string(s.Status),
			Score:       s.Score,
			Feedback:    s.Feedback,
			SubmittedAt: s.SubmittedAt,
			ScoredAt:    s.ScoredAt,
		})
	}

	return result, nil
}
