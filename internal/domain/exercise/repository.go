package exercise

import "context"

// ListOptions controls exercise pagination and filtering.
type ListOptions struct {
	Limit      int
	Offset     int
	Topic      string
	Difficulty Difficulty
	OnlyActive bool
}

// DefaultListOptions returns sane pagination defaults.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: 50, Offset: 0, OnlyActive: true}
}

// Repository persists exercises.
type Repository interface {
	Create(ctx context.Context, ex *Exercise) error
	GetByID(ctx context.Context, id string) (*Exercise, error)
	List(ctx context.Context, opts ListOptions) ([]*Exercise, error)
	Update(ctx context.Context, ex *Exercise) error
}

// SubmissionRepository persists attempts.
type SubmissionRepository interface {
	Create(ctx context.Context, sub *Submission) error
	GetByID(ctx context.Context, id string) (*Submission, error)
	Update(ctx context.Context, sub *Submission) error

	// ListByStudent returns the student's attempts, newest first.
	ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*Submission, error)

	// ListByExercise returns attempts at one exercise by one student,
	// newest first.
	ListByExercise(ctx context.Context, studentID, exerciseID string) ([]*Submission, error)
}

// ProgressRepository persists per-exercise rollups.
type ProgressRepository interface {
	// Upsert inserts or replaces the rollup for the (student,
	// exercise) pair.
	Upsert(ctx context.Context, p *Progress) error

	// Get returns the rollup or ErrProgressNotFound.
	Get(ctx context.Context, studentID, exerciseID string) (*Progress, error)

	// ListByStudent returns all rollups for a student.
	ListByStudent(ctx context.Context, studentID string) ([]*Progress, error)
}
