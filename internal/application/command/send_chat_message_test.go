package command

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnflow/learnflow-backend/internal/domain/chat"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/pkg/timeutil"
)

func newChatFixture(t *testing.T) (*fakeChatSessionRepo, *fakeMessageRepo, *chat.Session, *timeutil.FakeClock) {
	t.Helper()
	clock := timeutil.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	sessions := newFakeChatSessionRepo()
	session, err := chat.NewSession("chat-1", "stud-1", "recursion", chat.AgentConcepts, clock.Now())
	require.NoError(t, err)
	require.NoError(t, sessions.Create(context.Background(), session))
	return sessions, newFakeMessageRepo(), session, clock
}

func TestSendChatMessageHandler_AppendsBothTurns(t *testing.T) {
	ctx := context.Background()
	sessions, messages, session, clock := newChatFixture(t)
	responder := &fakeResponder{reply: "A base case stops the recursion."}
	emitter := &fakeEmitter{}

	handler := NewSendChatMessageHandler(sessions, messages, responder, emitter, clock, nil)

	result, err := handler.Handle(ctx, SendChatMessageCommand{
		SessionID: session.ID,
		StudentID: "stud-1",
		Content:   "What is a base case?",
	})
	require.NoError(t, err)

	assert.Equal(t, chat.RoleUser, result.UserMessage.Role)
	assert.Equal(t, chat.RoleAssistant, result.AssistantMessage.Role)
	assert.Equal(t, "A base case stops the recursion.", result.AssistantMessage.Content)

	transcript, err := messages.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.False(t, transcript[1].CreatedAt.Before(transcript[0].CreatedAt))

	// The responder sees the transcript up to and including the new user turn.
	require.Len(t, responder.history, 1)
	assert.Equal(t, "What is a base case?", responder.history[0].Content)

	assert.Equal(t, []string{
		string(shared.EventChatMessageSent),
		string(shared.EventChatMessageSent),
	}, emitter.typesSeen())
}

func TestSendChatMessageHandler_ContextWindow(t *testing.T) {
	ctx := context.Background()
	sessions, messages, session, clock := newChatFixture(t)
	responder := &fakeResponder{reply: "ok"}
	handler := NewSendChatMessageHandler(sessions, messages, responder, &fakeEmitter{}, clock, nil)

	for i := 0; i < 12; i++ {
		_, err := handler.Handle(ctx, SendChatMessageCommand{
			SessionID: session.ID,
			StudentID: "stud-1",
			Content:   fmt.Sprintf("question %d", i),
		})
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	// The prompt context is capped at the default window even though the
	// transcript has grown past it.
	assert.Len(t, responder.history, chat.DefaultContextLimit)

	count, err := messages.CountBySession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 24, count)
}

// rewindingResponder steps the clock backwards while the upstream call
// is in flight, mimicking an NTP correction between the two appends.
type rewindingResponder struct {
	clock  *timeutil.FakeClock
	rewind time.Duration
	reply  string
}

func (r *rewindingResponder) Respond(_ context.Context, _ chat.AgentType, _ []*chat.Message) (string, error) {
	r.clock.Set(r.clock.Now().Add(-r.rewind))
	return r.reply, nil
}

func TestSendChatMessageHandler_ReplyNeverPredatesUserTurn(t *testing.T) {
	ctx := context.Background()
	sessions, messages, session, clock := newChatFixture(t)
	responder := &rewindingResponder{clock: clock, rewind: time.Minute, reply: "still here"}

	handler := NewSendChatMessageHandler(sessions, messages, responder, &fakeEmitter{}, clock, nil)

	result, err := handler.Handle(ctx, SendChatMessageCommand{
		SessionID: session.ID,
		StudentID: "stud-1",
		Content:   "what time is it?",
	})
	require.NoError(t, err)

	// The assistant turn is clamped to the user turn despite the clock
	// having moved backwards in between.
	assert.Equal(t, result.UserMessage.CreatedAt, result.AssistantMessage.CreatedAt)
	assert.False(t, result.AssistantMessage.CreatedAt.Before(result.UserMessage.CreatedAt))
}

func TestSendChatMessageHandler_ClosedSession(t *testing.T) {
	ctx := context.Background()
	sessions, messages, session, clock := newChatFixture(t)
	require.NoError(t, sessions.Close(ctx, session.ID, clock.Now()))

	handler := NewSendChatMessageHandler(sessions, messages, &fakeResponder{reply: "ok"}, &fakeEmitter{}, clock, nil)

	_, err := handler.Handle(ctx, SendChatMessageCommand{
		SessionID: session.ID,
		StudentID: "stud-1",
		Content:   "anyone there?",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	count, _ := messages.CountBySession(ctx, session.ID)
	assert.Zero(t, count)
}

func TestSendChatMessageHandler_WrongStudent(t *testing.T) {
	sessions, messages, session, clock := newChatFixture(t)
	handler := NewSendChatMessageHandler(sessions, messages, &fakeResponder{reply: "ok"}, &fakeEmitter{}, clock, nil)

	_, err := handler.Handle(context.Background(), SendChatMessageCommand{
		SessionID: session.ID,
		StudentID: "stud-2",
		Content:   "hello",
	})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestSendChatMessageHandler_ResponderFailureKeepsUserMessage(t *testing.T) {
	ctx := context.Background()
	sessions, messages, session, clock := newChatFixture(t)
	responder := &fakeResponder{err: shared.ErrCompletionUnavailable}
	emitter := &fakeEmitter{}

	handler := NewSendChatMessageHandler(sessions, messages, responder, emitter, clock, nil)

	_, err := handler.Handle(ctx, SendChatMessageCommand{
		SessionID: session.ID,
		StudentID: "stud-1",
		Content:   "are you up?",
	})
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)

	// The user's turn survives the upstream failure and the session stays
	// open for a retry.
	transcript, _ := messages.ListBySession(ctx, session.ID)
	require.Len(t, transcript, 1)
	assert.Equal(t, chat.RoleUser, transcript[0].Role)

	current, _ := sessions.GetByID(ctx, session.ID)
	assert.True(t, current.IsOpen())
}

func TestCloseChatHandler_Idempotent(t *testing.T) {
	ctx := context.Background()
	sessions, messages, session, clock := newChatFixture(t)
	emitter := &fakeEmitter{}

	handler := NewCloseChatHandler(sessions, messages, emitter, clock, nil)

	require.NoError(t, handler.Handle(ctx, CloseChatCommand{SessionID: session.ID, StudentID: "stud-1"}))

	closed, _ := sessions.GetByID(ctx, session.ID)
	require.False(t, closed.IsOpen())
	firstEnd := *closed.EndedAt

	clock.Advance(time.Hour)
	require.NoError(t, handler.Handle(ctx, CloseChatCommand{SessionID: session.ID, StudentID: "stud-1"}))

	assert.Equal(t, firstEnd, *closed.EndedAt)
	assert.Equal(t, []string{string(shared.EventChatSessionClosed)}, emitter.typesSeen())
}

func TestOpenChatHandler_DefaultsAgentType(t *testing.T) {
	ctx := context.Background()
	students := newFakeStudentRepo()
	require.NoError(t, students.Create(ctx, mustStudent("stud-1", "alice@example.com", "s3cretpass")))
	sessions := newFakeChatSessionRepo()
	emitter := &fakeEmitter{}

	handler := NewOpenChatHandler(students, sessions, emitter, nil, nil)

	result, err := handler.Handle(ctx, OpenChatCommand{StudentID: "stud-1", Topic: "loops"})
	require.NoError(t, err)

	assert.Equal(t, chat.AgentGeneral, result.Session.AgentType)
	assert.True(t, result.Session.IsOpen())
	assert.Equal(t, []string{string(shared.EventChatSessionOpened)}, emitter.typesSeen())
}

func TestOpenChatHandler_UnknownAgentType(t *testing.T) {
	ctx := context.Background()
	students := newFakeStudentRepo()
	require.NoError(t, students.Create(ctx, mustStudent("stud-1", "alice@example.com", "s3cretpass")))

	handler := NewOpenChatHandler(students, newFakeChatSessionRepo(), &fakeEmitter{}, nil, nil)

	_, err := handler.Handle(ctx, OpenChatCommand{StudentID: "stud-1", AgentType: "oracle"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
