package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnflow/learnflow-backend/internal/domain/shared"
)

func TestRegisterStudentHandler_Success(t *testing.T) {
	ctx := context.Background()
	students := newFakeStudentRepo()
	emitter := &fakeEmitter{}

	handler := NewRegisterStudentHandler(students, fakeHasher{}, emitter, nil)

	result, err := handler.Handle(ctx, RegisterStudentCommand{
		Email:       "Bob@Example.COM",
		DisplayName: "Bob",
		Password:    "longenough",
		GradeLevel:  "beginner",
	})
	require.NoError(t, err)

	// Email is normalized and the stored credential is a hash, never the
	// raw password.
	assert.Equal(t, "bob@example.com", result.Student.Email.String())
	assert.Equal(t, "hashed:longenough", result.Student.PasswordHash)
	assert.True(t, result.Student.Active)

	assert.Equal(t, []string{string(shared.EventStudentRegistered)}, emitter.typesSeen())
}

func TestRegisterStudentHandler_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	students := newFakeStudentRepo()
	handler := NewRegisterStudentHandler(students, fakeHasher{}, &fakeEmitter{}, nil)

	_, err := handler.Handle(ctx, RegisterStudentCommand{
		Email: "bob@example.com", DisplayName: "Bob", Password: "longenough",
	})
	require.NoError(t, err)

	_, err = handler.Handle(ctx, RegisterStudentCommand{
		Email: "BOB@example.com", DisplayName: "Other Bob", Password: "different1",
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestRegisterStudentHandler_ShortPassword(t *testing.T) {
	handler := NewRegisterStudentHandler(newFakeStudentRepo(), fakeHasher{}, &fakeEmitter{}, nil)

	_, err := handler.Handle(context.Background(), RegisterStudentCommand{
		Email: "bob@example.com", DisplayName: "Bob", Password: "short",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestChangePasswordHandler(t *testing.T) {
	ctx := context.Background()
	students := newFakeStudentRepo()
	emitter := &fakeEmitter{}
	s := mustStudent("stud-1", "alice@example.com", "oldpassword")
	require.NoError(t, students.Create(ctx, s))

	handler := NewChangePasswordHandler(students, fakeHasher{}, emitter, nil)

	require.NoError(t, handler.Handle(ctx, ChangePasswordCommand{
		StudentID:   "stud-1",
		OldPassword: "oldpassword",
		NewPassword: "newpassword",
	}))

	updated, err := students.GetByID(ctx, "stud-1")
	require.NoError(t, err)
	assert.Equal(t, "hashed:newpassword", updated.PasswordHash)
	assert.Equal(t, []string{string(shared.EventStudentPasswordChanged)}, emitter.typesSeen())

	// The old credential no longer verifies.
	err = handler.Handle(ctx, ChangePasswordCommand{
		StudentID:   "stud-1",
		OldPassword: "oldpassword",
		NewPassword: "anotherpass",
	})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestDeactivateStudentHandler(t *testing.T) {
	ctx := context.Background()
	students := newFakeStudentRepo()
	emitter := &fakeEmitter{}
	require.NoError(t, students.Create(ctx, mustStudent("stud-1", "alice@example.com", "s3cretpass")))

	handler := NewDeactivateStudentHandler(students, emitter, nil)

	require.NoError(t, handler.Handle(ctx, DeactivateStudentCommand{StudentID: "stud-1", Reason: "graduated"}))

	s, err := students.GetByID(ctx, "stud-1")
	require.NoError(t, err)
	assert.False(t, s.Active)
	assert.Equal(t, []string{string(shared.EventStudentDeactivated)}, emitter.typesSeen())
}
