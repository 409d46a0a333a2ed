package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnflow/learnflow-backend/internal/domain/exercise"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/pkg/timeutil"
)

func newExerciseFixture(t *testing.T) (*fakeExerciseRepo, *exercise.Exercise, *timeutil.FakeClock) {
	t.Helper()
	clock := timeutil.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	exercises := newFakeExerciseRepo()
	ex, err := exercise.NewExercise("ex-1", "FizzBuzz", "Print numbers 1..100", "loops", exercise.DifficultyBeginner, exercise.Content{}, clock.Now())
	require.NoError(t, err)
	require.NoError(t, exercises.Create(context.Background(), ex))
	return exercises, ex, clock
}

func TestSubmitExerciseHandler_RecordsAttempt(t *testing.T) {
	ctx := context.Background()
	exercises, ex, clock := newExerciseFixture(t)
	submissions := newFakeSubmissionRepo()
	emitter := &fakeEmitter{}

	handler := NewSubmitExerciseHandler(exercises, submissions, emitter, clock, nil)

	result, err := handler.Handle(ctx, SubmitExerciseCommand{
		StudentID:  "stud-1",
		ExerciseID: ex.ID,
		Code:       "for i in range(1, 101): print(i)",
	})
	require.NoError(t, err)

	assert.Equal(t, exercise.SubmissionSubmitted, result.Submission.Status)
	assert.Nil(t, result.Submission.Score)

	stored, err := submissions.GetByID(ctx, result.Submission.ID)
	require.NoError(t, err)
	assert.Equal(t, ex.ID, stored.ExerciseID)

	assert.Equal(t, []string{string(shared.EventSubmissionReceived)}, emitter.typesSeen())
}

func TestSubmitExerciseHandler_UnknownExercise(t *testing.T) {
	handler := NewSubmitExerciseHandler(newFakeExerciseRepo(), newFakeSubmissionRepo(), &fakeEmitter{}, nil, nil)

	_, err := handler.Handle(context.Background(), SubmitExerciseCommand{
		StudentID:  "stud-1",
		ExerciseID: "missing",
		Code:       "print('hi')",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSubmitExerciseHandler_InactiveExercise(t *testing.T) {
	ctx := context.Background()
	exercises, ex, clock := newExerciseFixture(t)
	ex.Active = false
	require.NoError(t, exercises.Update(ctx, ex))

	handler := NewSubmitExerciseHandler(exercises, newFakeSubmissionRepo(), &fakeEmitter{}, clock, nil)

	_, err := handler.Handle(ctx, SubmitExerciseCommand{StudentID: "stud-1", ExerciseID: ex.ID, Code: "x"})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestScoreSubmissionHandler_ScoresOnce(t *testing.T) {
	ctx := context.Background()
	_, ex, clock := newExerciseFixture(t)
	submissions := newFakeSubmissionRepo()
	progress := newFakeProgressRepo()
	emitter := &fakeEmitter{}

	sub, err := exercise.NewSubmission("sub-1", ex.ID, "stud-1", "print('hi')", clock.Now())
	require.NoError(t, err)
	require.NoError(t, submissions.Create(ctx, sub))

	handler := NewScoreSubmissionHandler(submissions, progress, emitter, clock, nil)

	result, err := handler.Handle(ctx, ScoreSubmissionCommand{SubmissionID: "sub-1", Score: 75, Feedback: "solid"})
	require.NoError(t, err)

	assert.Equal(t, exercise.SubmissionPassing, result.Submission.Status)
	assert.Equal(t, exercise.ProgressCompleted, result.Progress.Status)
	assert.Equal(t, 75, result.Progress.BestScore)
	assert.Equal(t, 1, result.Progress.Attempts)

	assert.Equal(t, []string{
		string(shared.EventSubmissionScored),
		string(shared.EventProgressUpdated),
	}, emitter.typesSeen())

	// A second grade for the same submission is rejected.
	_, err = handler.Handle(ctx, ScoreSubmissionCommand{SubmissionID: "sub-1", Score: 90})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestScoreSubmissionHandler_ProgressNeverDemotes(t *testing.T) {
	ctx := context.Background()
	_, ex, clock := newExerciseFixture(t)
	submissions := newFakeSubmissionRepo()
	progress := newFakeProgressRepo()

	handler := NewScoreSubmissionHandler(submissions, progress, &fakeEmitter{}, clock, nil)

	scores := []struct {
		id    string
		score int
		want  exercise.ProgressStatus
		best  int
	}{
		{"sub-1", 95, exercise.ProgressMastered, 95},
		{"sub-2", 40, exercise.ProgressMastered, 95},
		{"sub-3", 70, exercise.ProgressMastered, 95},
	}

	for _, tc := range scores {
		sub, err := exercise.NewSubmission(tc.id, ex.ID, "stud-1", "attempt", clock.Now())
		require.NoError(t, err)
		require.NoError(t, submissions.Create(ctx, sub))

		result, err := handler.Handle(ctx, ScoreSubmissionCommand{SubmissionID: tc.id, Score: tc.score})
		require.NoError(t, err)

		assert.Equal(t, tc.want, result.Progress.Status, "after scoring %s", tc.id)
		assert.Equal(t, tc.best, result.Progress.BestScore, "after scoring %s", tc.id)
		clock.Advance(time.Minute)
	}

	stored, err := progress.Get(ctx, "stud-1", ex.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Attempts)
}

func TestScoreSubmissionHandler_ScoreOutOfRange(t *testing.T) {
	handler := NewScoreSubmissionHandler(newFakeSubmissionRepo(), newFakeProgressRepo(), &fakeEmitter{}, nil, nil)

	_, err := handler.Handle(context.Background(), ScoreSubmissionCommand{SubmissionID: "sub-1", Score: 101})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
