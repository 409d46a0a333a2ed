package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnflow/learnflow-backend/internal/domain/exercise"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
)

func seedExercise(t *testing.T, repo *fakeExerciseRepo) *exercise.Exercise {
	t.Helper()
	ex, err := exercise.NewExercise("ex-1", "FizzBuzz", "Print numbers 1..100", "loops",
		exercise.DifficultyBeginner,
		exercise.Content{
			StarterCode:    "package main",
			ExpectedOutput: "1\n2\nFizz\n",
			TestCases:      []map[string]interface{}{{"input": "3", "expected": "Fizz"}},
			Hints:          []string{"use the modulo operator"},
			SolutionCode:   "the full answer",
		},
		time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), ex))
	return ex
}

func TestGetExerciseHandler_ContentWithoutSolution(t *testing.T) {
	exercises := newFakeExerciseRepo()
	ex := seedExercise(t, exercises)

	handler := NewGetExerciseHandler(exercises)
	dto, err := handler.Handle(context.Background(), GetExerciseQuery{ExerciseID: ex.ID})
	require.NoError(t, err)

	assert.Equal(t, "package main", dto.StarterCode)
	assert.Equal(t, "1\n2\nFizz\n", dto.ExpectedOutput)
	assert.Equal(t, ex.Content.TestCases, dto.TestCases)
	assert.Equal(t, ex.Content.Hints, dto.Hints)
}

func TestGetExerciseHandler_NotFound(t *testing.T) {
	handler := NewGetExerciseHandler(newFakeExerciseRepo())

	_, err := handler.Handle(context.Background(), GetExerciseQuery{ExerciseID: "missing"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListExercisesHandler_CarriesContent(t *testing.T) {
	exercises := newFakeExerciseRepo()
	seedExercise(t, exercises)

	handler := NewListExercisesHandler(exercises)
	result, err := handler.Handle(context.Background(), ListExercisesQuery{})
	require.NoError(t, err)

	require.Len(t, result.Exercises, 1)
	entry := result.Exercises[0]
	assert.Equal(t, "FizzBuzz", entry.Title)
	assert.Equal(t, "package main", entry.StarterCode)
	assert.Len(t, entry.TestCases, 1)
	assert.Equal(t, []string{"use the modulo operator"}, entry.Hints)
}
