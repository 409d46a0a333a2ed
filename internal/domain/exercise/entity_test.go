package exercise

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSubmission(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	sub, err := NewSubmission("sub-1", "ex-1", "student-1", "package main", at)
	assert.NoError(t, err)
	assert.Equal(t, SubmissionSubmitted, sub.Status)
	assert.Nil(t, sub.Score)

	_, err = NewSubmission("sub-2", "ex-1", "student-1", "", at)
	assert.ErrorIs(t, err, ErrEmptyCode)
}

func TestSubmission_ApplyScore(t *testing.T) {
	at := time.Now().UTC()
	sub, err := NewSubmission("sub-1", "ex-1", "student-1", "code", at)
	assert.NoError(t, err)

	assert.ErrorIs(t, sub.ApplyScore(101, "", at), ErrInvalidScore)
	assert.ErrorIs(t, sub.ApplyScore(-1, "", at), ErrInvalidScore)

	assert.NoError(t, sub.ApplyScore(75, "well done", at))
	assert.Equal(t, SubmissionPassing, sub.Status)
	assert.Equal(t, 75, *sub.Score)
	assert.True(t, sub.IsPassing())

	// A submission is scored exactly once.
	assert.ErrorIs(t, sub.ApplyScore(30, "", at), ErrAlreadyScored)
}

func TestSubmission_FailingScore(t *testing.T) {
	at := time.Now().UTC()
	sub, _ := NewSubmission("sub-1", "ex-1", "student-1", "code", at)

	assert.NoError(t, sub.ApplyScore(PassingScore-1, "", at))
	assert.Equal(t, SubmissionFailing, sub.Status)
	assert.False(t, sub.IsPassing())
}

func TestProgress_RecordAttempt(t *testing.T) {
	now := time.Now().UTC()
	p := NewProgress("student-1", "ex-1", now)
	assert.Equal(t, ProgressInProgress, p.Status)

	p.RecordAttempt(40, now)
	assert.Equal(t, ProgressInProgress, p.Status)
	assert.Equal(t, 40, p.BestScore)
	assert.Equal(t, 1, p.Attempts)

	p.RecordAttempt(70, now)
	assert.Equal(t, ProgressCompleted, p.Status)

	p.RecordAttempt(95, now)
	assert.Equal(t, ProgressMastered, p.Status)
	assert.Equal(t, 95, p.BestScore)

	// Status never moves backwards on a worse attempt.
	p.RecordAttempt(10, now)
	assert.Equal(t, ProgressMastered, p.Status)
	assert.Equal(t, 95, p.BestScore)
	assert.Equal(t, 4, p.Attempts)
}

func TestProgress_CompletedAtSetOnce(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := NewProgress("student-1", "ex-1", start)

	// Failing attempts never stamp a completion time.
	p.RecordAttempt(40, start)
	assert.Nil(t, p.CompletedAt)

	first := start.Add(time.Hour)
	p.RecordAttempt(80, first)
	assert.Equal(t, ProgressCompleted, p.Status)
	if assert.NotNil(t, p.CompletedAt) {
		assert.Equal(t, first, *p.CompletedAt)
	}

	// Later attempts, even ones that raise the standing to mastered,
	// keep the original completion time.
	p.RecordAttempt(95, start.Add(2*time.Hour))
	assert.Equal(t, ProgressMastered, p.Status)
	assert.Equal(t, first, *p.CompletedAt)

	p.RecordAttempt(10, start.Add(3*time.Hour))
	assert.Equal(t, first, *p.CompletedAt)
}

func TestNewExercise_Defaults(t *testing.T) {
	ex, err := NewExercise("ex-1", "Slices", "intro to slices", "go-basics", "", Content{}, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, DifficultyBeginner, ex.Difficulty)
	assert.True(t, ex.Active)

	_, err = NewExercise("ex-2", "", "", "", DifficultyAdvanced, Content{}, time.Now())
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestNewExercise_Content(t *testing.T) {
	content := Content{
		StarterCode:    "package main\n\nfunc main() {}",
		ExpectedOutput: "hello\n",
		TestCases: []map[string]interface{}{
			{"input": "hello", "expected": "hello\n"},
		},
		Hints:        []string{"use fmt.Println"},
		SolutionCode: "package main\n\nfunc main() { fmt.Println(\"hello\") }",
	}

	ex, err := NewExercise("ex-1", "Hello", "print hello", "go-basics", DifficultyBeginner, content, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, content, ex.Content)
}
