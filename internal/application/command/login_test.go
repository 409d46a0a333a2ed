package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnflow/learnflow-backend/internal/domain/auth"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/pkg/timeutil"
)

func TestLoginHandler_Success(t *testing.T) {
	ctx := context.Background()
	students := newFakeStudentRepo()
	sessions := newFakeSessionRepo()
	cache := newFakeSessionCache()
	emitter := &fakeEmitter{}
	clock := timeutil.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, students.Create(ctx, mustStudent("stud-1", "alice@example.com", "s3cretpass")))

	handler := NewLoginHandler(students, sessions, cache, fakeHasher{}, emitter,
		LoginHandlerConfig{Clock: clock}, nil)

	result, err := handler.Handle(ctx, LoginCommand{Email: "Alice@Example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	require.NotNil(t, result.Session)

	assert.Equal(t, "stud-1", result.Session.StudentID)
	assert.Equal(t, clock.Now().Add(auth.DefaultSessionTTL), result.Session.ExpiresAt)
	assert.NoError(t, result.Session.CheckValid(clock.Now()))

	// Session is persisted and cached under its token.
	stored, err := sessions.GetByToken(ctx, result.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, result.Session.Token, stored.Token)
	assert.Equal(t, 1, cache.sets)

	// Tokens are freshly minted 64-char hex strings.
	assert.Len(t, result.Session.Token.String(), 64)

	// The handler reports the concurrent session count after issuing.
	assert.Equal(t, 1, sessions.countCalls)

	assert.Equal(t, []string{string(shared.EventStudentLoggedIn)}, emitter.typesSeen())
}

func TestLoginHandler_ConcurrentSessionsAllowed(t *testing.T) {
	ctx := context.Background()
	students := newFakeStudentRepo()
	sessions := newFakeSessionRepo()
	clock := timeutil.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, students.Create(ctx, mustStudent("stud-1", "alice@example.com", "s3cretpass")))

	handler := NewLoginHandler(students, sessions, nil, fakeHasher{}, &fakeEmitter{},
		LoginHandlerConfig{Clock: clock}, nil)

	first, err := handler.Handle(ctx, LoginCommand{Email: "alice@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	second, err := handler.Handle(ctx, LoginCommand{Email: "alice@example.com", Password: "s3cretpass"})
	require.NoError(t, err)

	// A new login never revokes older sessions, and each mint is unique.
	assert.NotEqual(t, first.Session.Token, second.Session.Token)
	count, err := sessions.CountActive(ctx, "stud-1", clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	ctx := context.Background()
	students := newFakeStudentRepo()
	require.NoError(t, students.Create(ctx, mustStudent("stud-1", "alice@example.com", "s3cretpass")))

	handler := NewLoginHandler(students, newFakeSessionRepo(), nil, fakeHasher{}, &fakeEmitter{},
		LoginHandlerConfig{}, nil)

	_, err := handler.Handle(ctx, LoginCommand{Email: "alice@example.com", Password: "wrongpass"})
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestLoginHandler_UnknownEmailSameError(t *testing.T) {
	handler := NewLoginHandler(newFakeStudentRepo(), newFakeSessionRepo(), nil, fakeHasher{}, &fakeEmitter{},
		LoginHandlerConfig{}, nil)

	_, err := handler.Handle(context.Background(), LoginCommand{Email: "nobody@example.com", Password: "whatever1"})

	// Unknown accounts and wrong passwords are indistinguishable.
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLoginHandler_InactiveStudent(t *testing.T) {
	ctx := context.Background()
	students := newFakeStudentRepo()
	s := mustStudent("stud-1", "alice@example.com", "s3cretpass")
	require.NoError(t, students.Create(ctx, s))
	require.NoError(t, students.Deactivate(ctx, s.ID))

	handler := NewLoginHandler(students, newFakeSessionRepo(), nil, fakeHasher{}, &fakeEmitter{},
		LoginHandlerConfig{}, nil)

	_, err := handler.Handle(ctx, LoginCommand{Email: "alice@example.com", Password: "s3cretpass"})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestLogoutHandler_RevokesSession(t *testing.T) {
	ctx := context.Background()
	sessions := newFakeSessionRepo()
	cache := newFakeSessionCache()
	clock := timeutil.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	session, err := auth.NewSession("tok-1", "stud-1", clock.Now(), auth.DefaultSessionTTL)
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, session))
	require.NoError(t, cache.Set(ctx, session, time.Hour))

	handler := NewLogoutHandler(sessions, cache, clock, nil)
	require.NoError(t, handler.Handle(ctx, LogoutCommand{Token: "tok-1"}))

	stored, err := sessions.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.ErrorIs(t, stored.CheckValid(clock.Now()), auth.ErrSessionRevoked)
	assert.Equal(t, 1, cache.deletes)

	// Logging out twice keeps the first revocation timestamp.
	first := *stored.RevokedAt
	clock.Advance(time.Minute)
	assert.NoError(t, handler.Handle(ctx, LogoutCommand{Token: "tok-1"}))
	assert.Equal(t, first, *stored.RevokedAt)
}

func TestLogoutHandler_UnknownTokenIsNoop(t *testing.T) {
	handler := NewLogoutHandler(newFakeSessionRepo(), nil, nil, nil)
	assert.NoError(t, handler.Handle(context.Background(), LogoutCommand{Token: "unknown"}))
	assert.NoError(t, handler.Handle(context.Background(), LogoutCommand{Token: ""}))
}
