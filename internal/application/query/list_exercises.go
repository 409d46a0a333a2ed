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
// LIST EXERCISES QUERY
// Returns the exercise catalog with optional topic and difficulty
// filters.
// ══════════════════════════════════════════════════════════════════════════════

// ListExercisesQuery contains the catalog filters.
type ListExercisesQuery struct {
	// Topic filters by topic when non-empty.
	Topic string

	// Difficulty filters by difficulty when non-empty.
	Difficulty string

	// IncludeInactive also returns unpublished exercises.
	IncludeInactive bool

	// Limit caps the page size (default 50, max 200).
	Limit int

	// Offset skips the first N exercises.
	Offset int
}

// Validate validates the query and applies pagination defaults.
func (q *ListExercisesQuery) Validate() error {
	if q.Difficulty != "" && !exercise.Difficulty(q.Difficulty).IsValid() {
		return errors.New("list_exercises: unknown difficulty")
	}
	if q.Limit <= 0 {
		q.Limit = exercise.DefaultListOptions().Limit
	}
	if q.Limit > 200 {
		q.Limit = 200
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return nil
}

// ExerciseDTO is the read model for one catalog entry. The reference
// solution is deliberately absent: students never see it.
type ExerciseDTO struct {
	ID             string                   `json:"id"`
	Title          string                   `json:"title"`
	Description    string                   `json:"description,omitempty"`
	Difficulty     string                   `json:"difficulty"`
	Topic          string                   `json:"topic,omitempty"`
	StarterCode    string                   `json:"starter_code,omitempty"`
	ExpectedOutput string                   `json:"expected_output,omitempty"`
	TestCases      []map[string]interface{} `json:"test_cases,omitempty"`
	Hints          []string                 `json:"hints,omitempty"`
	Active         bool                     `json:"active"`
	CreatedAt      time.Time                `json:"created_at"`
}

func newExerciseDTO(ex *exercise.Exercise) ExerciseDTO {
	return ExerciseDTO{
		ID:             ex.ID,
		Title:          ex.Title,
		Description:    ex.Description,
		Difficulty:     string(ex.Difficulty),
		Topic:          ex.Topic,
		StarterCode:    ex.Content.StarterCode,
		ExpectedOutput: ex.Content.ExpectedOutput,
		TestCases:      ex.Content.TestCases,
		Hints:          ex.Content.Hints,
		Active:         ex.Active,
		CreatedAt:      ex.CreatedAt,
	}
}

// ListExercisesResult contains the page of exercises.
type ListExercisesResult struct {
	Exercises []ExerciseDTO `json:"exercises"`
	Limit     int           `json:"limit"`
	Offset    int           `json:"offset"`
}

// ListExercisesHandler handles the ListExercisesQuery.
type ListExercisesHandler struct {
	exerciseRepo exercise.Repository
}

// NewListExercisesHandler creates a new handler.
func NewListExercisesHandler(exerciseRepo exercise.Repository) *ListExercisesHandler {
	return &ListExercisesHandler{exerciseRepo: exerciseRepo}
}

// Handle executes the list exercises query.
func (h *ListExercisesHandler) Handle(ctx context.Context, q ListExercisesQuery) (*ListExercisesResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.WrapError("exercise", "List", shared.ErrInvalidInput, "invalid request", err)
	}

	exercises, err := h.exerciseRepo.List(ctx, exercise.ListOptions{
		Limit:      q.Limit,
		Offset:     q.Offset,
		Topic:      q.Topic,
		Difficulty: exercise.Difficulty(q.Difficulty),
		OnlyActive: !q.IncludeInactive,
	})
	if err != nil {
		return nil, fmt.Errorf("list_exercises: %w", err)
	}

	result := &ListExercisesResult{
		Exercises: make([]ExerciseDTO, 0, len(exercises)),
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	for _, ex := range exercises {
		result.Exercises = append(result.Exercises, newExerciseDTO(ex))
	}

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET EXERCISE QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetExerciseQuery identifies one exercise.
type GetExerciseQuery struct {
	ExerciseID string
}

// GetExerciseHandler handles the GetExerciseQuery.
type GetExerciseHandler struct {
	exerciseRepo exercise.Repository
}

// NewGetExerciseHandler creates a new handler.
func NewGetExerciseHandler(exerciseRepo exercise.Repository) *GetExerciseHandler {
	return &GetExerciseHandler{exerciseRepo: exerciseRepo}
}

// Handle executes the get exercise query.
func (h *GetExerciseHandler) Handle(ctx context.Context, q GetExerciseQuery) (*ExerciseDTO, error) {
	if q.ExerciseID == "" {
		return nil, shared.NewDomainError("exercise", "Get", shared.ErrInvalidInput, "exercise_id is required")
	}

	ex, err := h.exerciseRepo.GetByID(ctx, q.ExerciseID)
	if err != nil {
		if errors.Is(err, exercise.ErrExerciseNotFound) {
			return nil, shared.ErrExerciseNotFound
		}
		return nil, fmt.Errorf("get_exercise: %w", err)
	}

	dto := newExerciseDTO(ex)
	return &dto, nil
}
