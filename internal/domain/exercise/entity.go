// Package exercise contains domain entities for practice exercises,
// student submissions and per-exercise progress tracking.
package exercise

import (
	"errors"
	"time"
)

// Domain errors for the exercise package.
var (
	ErrInvalidExerciseID    = errors.New("exercise: invalid exercise ID")
	ErrInvalidSubmissionID  = errors.New("exercise: invalid submission ID")
	ErrInvalidStudentID     = errors.New("exercise: invalid student ID")
	ErrEmptyTitle           = errors.New("exercise: title cannot be empty")
	ErrEmptyCode            = errors.New("exercise: submission code cannot be empty")
	ErrInvalidDifficulty    = errors.New("exercise: invalid difficulty")
	ErrInvalidScore         = errors.New("exercise: score must be between 0 and 100")
	ErrExerciseNotFound     = errors.New("exercise: exercise not found")
	ErrSubmissionNotFound   = errors.New("exercise: submission not found")
	ErrProgressNotFound     = errors.New("exercise: progress not found")
	ErrAlreadyScored        = errors.New("exercise: submission already scored")
	ErrExerciseInactive     = errors.New("exercise: exercise is not accepting submissions")
)

// Difficulty grades an exercise for curriculum ordering.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// IsValid checks that the difficulty is a known grade.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// Content is the teaching material attached to an exercise: what the
// student starts from, what their program should print, the checks run
// against it, and the graded solution. The solution never leaves the
// backend; read models strip it.
type Content struct {
	// StarterCode is the scaffold shown in the editor.
	StarterCode string

	// ExpectedOutput is the stdout a correct solution produces.
	ExpectedOutput string

	// TestCases are free-form check definitions (input, expected,
	// weight) stored as JSON.
	TestCases []map[string]interface{}

	// Hints are revealed to the student one at a time, in order.
	Hints []string

	// SolutionCode is the reference solution.
	SolutionCode string
}

// Exercise is a practice task published to students.
type Exercise struct {
	ID          string
	Title       string
	Description string
	Difficulty  Difficulty
	Topic       string
	Content     Content
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewExercise creates a published exercise.
func NewExercise(id, title, description, topic string, difficulty Difficulty, content Content, now time.Time) (*Exercise, error) {
	if id == "" {
		return nil, ErrInvalidExerciseID
	}
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if difficulty == "" {
		difficulty = DifficultyBeginner
	}
	if !difficulty.IsValid() {
		return nil, ErrInvalidDifficulty
	}

	now = now.UTC()
	return &Exercise{
		ID:          id,
		Title:       title,
		Description: description,
		Difficulty:  difficulty,
		Topic:       topic,
		Content:     content,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SubmissionStatus tracks a submission through scoring.
type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionPassing   SubmissionStatus = "passing"
	SubmissionFailing   SubmissionStatus = "failing"
)

// PassingScore is the minimum score counted as a pass.
const PassingScore = 60

// Submission is one attempt at an exercise.
type Submission struct {
	ID          string
	ExerciseID  string
	StudentID   string
	Code        string
	Status      SubmissionStatus
	Score       *int // nil until scored
	Feedback    string
	SubmittedAt time.Time
	ScoredAt    *time.Time
}

// NewSubmission records an attempt awaiting a score.
func NewSubmission(id, exerciseID, studentID, code string, at time.Time) (*Submission, error) {
	if id == "" {
		return nil, ErrInvalidSubmissionID
	}
	if exerciseID == "" {
		return nil, ErrInvalidExerciseID
	}
	if studentID == "" {
		return nil, ErrInvalidStudentID
	}
	if code == "" {
		return nil, ErrEmptyCode
	}

	return &Submission{
		ID:          id,
		ExerciseID:  exerciseID,
		StudentID:   studentID,
		Code:        code,
		Status:      SubmissionSubmitted,
		SubmittedAt: at.UTC(),
	}, nil
}

// ApplyScore records the grading result. A submission is scored at
// most once.
func (s *Submission) ApplyScore(score int, feedback string, at time.Time) error {
	if s.Score != nil {
		return ErrAlreadyScored
	}
	if score < 0 || score > 100 {
		return ErrInvalidScore
	}

	at = at.UTC()
	s.Score = &score
	s.Feedback = feedback
	s.ScoredAt = &at
	if score >= PassingScore {
		s.Status = SubmissionPassing
	} else {
		s.Status = SubmissionFailing
	}
	return nil
}

// IsPassing reports whether the submission met the passing bar.
func (s *Submission) IsPassing() bool {
	return s.Status == SubmissionPassing
}

// ProgressStatus tracks a student's standing on one exercise.
type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressMastered   ProgressStatus = "mastered"
)

// MasteryScore is the score threshold for the mastered status.
const MasteryScore = 90

// Progress is the per-student, per-exercise rollup of attempts.
type Progress struct {
	StudentID  string
	ExerciseID string
	Status     ProgressStatus
	BestScore  int
	Attempts   int

	// CompletedAt records the first attempt that reached completed or
	// mastered standing. Later attempts never move it.
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// NewProgress starts tracking for a first attempt.
func NewProgress(studentID, exerciseID string, now time.Time) *Progress {
	return &Progress{
		StudentID:  studentID,
		ExerciseID: exerciseID,
		Status:     ProgressInProgress,
		UpdatedAt:  now.UTC(),
	}
}

// RecordAttempt folds a scored submission into the rollup. Status only
// moves forward: a later failing attempt never demotes completed or
// mastered standing.
func (p *Progress) RecordAttempt(score int, at time.Time) {
	at = at.UTC()
	p.Attempts++
	if score > p.BestScore {
		p.BestScore = score
	}
	p.Status = p.statusFor(p.BestScore)
	if p.CompletedAt == nil && (p.Status == ProgressCompleted || p.Status == ProgressMastered) {
		p.CompletedAt = &at
	}
	p.UpdatedAt = at
}

func (p *Progress) statusFor(best int) ProgressStatus {
	switch {
	case best >= MasteryScore:
		return ProgressMastered
	case best >= PassingScore:
		return ProgressCompleted
	default:
		return ProgressInProgress
	}
}
