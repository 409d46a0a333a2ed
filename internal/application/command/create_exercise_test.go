package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnflow/learnflow-backend/internal/domain/exercise"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
)

func TestCreateExerciseHandler_PublishesWithContent(t *testing.T) {
	ctx := context.Background()
	exercises := newFakeExerciseRepo()
	handler := NewCreateExerciseHandler(exercises, nil, nil)

	testCases := []map[string]interface{}{
		{"input": "3", "expected": "Fizz"},
		{"input": "5", "expected": "Buzz"},
	}
	hints := []string{"use the modulo operator", "check 15 before 3 and 5"}

	result, err := handler.Handle(ctx, CreateExerciseCommand{
		Title:          "FizzBuzz",
		Description:    "Print numbers 1..100",
		Difficulty:     "beginner",
		Topic:          "loops",
		StarterCode:    "package main\n\nfunc main() {}",
		ExpectedOutput: "1\n2\nFizz\n",
		TestCases:      testCases,
		Hints:          hints,
		SolutionCode:   "package main\n\n// full solution",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Exercise)

	// The stored exercise carries the full teaching content.
	stored, err := exercises.GetByID(ctx, result.Exercise.ID)
	require.NoError(t, err)
	assert.Equal(t, "package main\n\nfunc main() {}", stored.Content.StarterCode)
	assert.Equal(t, "1\n2\nFizz\n", stored.Content.ExpectedOutput)
	assert.Equal(t, testCases, stored.Content.TestCases)
	assert.Equal(t, hints, stored.Content.Hints)
	assert.Equal(t, "package main\n\n// full solution", stored.Content.SolutionCode)
	assert.Equal(t, exercise.DifficultyBeginner, stored.Difficulty)
	assert.True(t, stored.Active)
}

func TestCreateExerciseHandler_RequiresTitle(t *testing.T) {
	handler := NewCreateExerciseHandler(newFakeExerciseRepo(), nil, nil)

	_, err := handler.Handle(context.Background(), CreateExerciseCommand{
		Description: "missing its title",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
