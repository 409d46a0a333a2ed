package student

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validParams() NewStudentParams {
	return NewStudentParams{
		ID:           "student-1",
		Email:        "Alice@Example.COM",
		DisplayName:  "  Alice  ",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		GradeLevel:   "beginner",
	}
}

func TestNewStudent(t *testing.T) {
	s, err := NewStudent(validParams())
	assert.NoError(t, err)
	assert.Equal(t, Email("alice@example.com"), s.Email)
	assert.Equal(t, "Alice", s.DisplayName)
	assert.True(t, s.Active)
	assert.True(t, s.CanLogin())
}

func TestNewStudent_Validation(t *testing.T) {
	p := validParams()
	p.Email = "not-an-email"
	_, err := NewStudent(p)
	assert.ErrorIs(t, err, ErrInvalidEmail)

	p = validParams()
	p.DisplayName = "   "
	_, err = NewStudent(p)
	assert.ErrorIs(t, err, ErrInvalidDisplayName)

	p = validParams()
	p.PasswordHash = ""
	_, err = NewStudent(p)
	assert.ErrorIs(t, err, ErrEmptyPasswordHash)
}

func TestStudent_Deactivate(t *testing.T) {
	s, err := NewStudent(validParams())
	assert.NoError(t, err)

	assert.NoError(t, s.Deactivate())
	assert.False(t, s.Active)
	assert.False(t, s.CanLogin())

	// Повторная деактивация возвращает ошибку.
	assert.ErrorIs(t, s.Deactivate(), ErrStudentInactive)

	s.Reactivate()
	assert.True(t, s.CanLogin())
}

func TestStudent_ChangePasswordHash(t *testing.T) {
	s, err := NewStudent(validParams())
	assert.NoError(t, err)

	assert.ErrorIs(t, s.ChangePasswordHash(""), ErrEmptyPasswordHash)
	assert.NoError(t, s.ChangePasswordHash("$2a$10$newhashnewhashnewhash"))
	assert.Equal(t, "$2a$10$newhashnewhashnewhash", s.PasswordHash)
}

func TestStudent_String_HidesPasswordHash(t *testing.T) {
	s, err := NewStudent(validParams())
	assert.NoError(t, err)
	assert.NotContains(t, s.String(), s.PasswordHash)
}

func TestEmail_Normalized(t *testing.T) {
	assert.Equal(t, Email("bob@example.com"), Email(" Bob@Example.Com ").Normalized())
}
