package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnflow/learnflow-backend/internal/domain/chat"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
)

func seedTranscript(t *testing.T, messages *fakeMessageRepo, sessionID string, n int) {
	t.Helper()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		msg, err := chat.NewMessage(
			fmt.Sprintf("msg-%d", i), sessionID, role,
			fmt.Sprintf("turn %d", i), nil,
			base.Add(time.Duration(i)*time.Second),
		)
		require.NoError(t, err)
		require.NoError(t, messages.Append(context.Background(), msg))
	}
}

func TestGetChatHistoryHandler_FullTranscript(t *testing.T) {
	ctx := context.Background()
	sessions := newFakeChatSessionRepo()
	messages := newFakeMessageRepo()

	session, err := chat.NewSession("chat-1", "stud-1", "pointers", chat.AgentDebug, time.Now())
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, session))
	seedTranscript(t, messages, session.ID, 6)

	handler := NewGetChatHistoryHandler(sessions, messages)

	result, err := handler.Handle(ctx, GetChatHistoryQuery{SessionID: "chat-1", StudentID: "stud-1"})
	require.NoError(t, err)

	require.Len(t, result.Messages, 6)
	assert.Equal(t, "turn 0", result.Messages[0].Content)
	assert.Equal(t, "user", result.Messages[0].Role)
	assert.Equal(t, "assistant", result.Messages[1].Role)
	assert.Equal(t, "debug", result.Session.AgentType)
	assert.Equal(t, 6, result.Session.MessageCount)

	// Chronological order end to end.
	for i := 1; i < len(result.Messages); i++ {
		assert.False(t, result.Messages[i].CreatedAt.Before(result.Messages[i-1].CreatedAt))
	}
}

func TestGetChatHistoryHandler_TailLimit(t *testing.T) {
	ctx := context.Background()
	sessions := newFakeChatSessionRepo()
	messages := newFakeMessageRepo()

	session, err := chat.NewSession("chat-1", "stud-1", "", chat.AgentGeneral, time.Now())
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, session))
	seedTranscript(t, messages, session.ID, 8)

	handler := NewGetChatHistoryHandler(sessions, messages)

	result, err := handler.Handle(ctx, GetChatHistoryQuery{SessionID: "chat-1", StudentID: "stud-1", Limit: 3})
	require.NoError(t, err)

	require.Len(t, result.Messages, 3)
	assert.Equal(t, "turn 5", result.Messages[0].Content)
	assert.Equal(t, "turn 7", result.Messages[2].Content)
}

func TestGetChatHistoryHandler_WrongStudent(t *testing.T) {
	ctx := context.Background()
	sessions := newFakeChatSessionRepo()
	session, err := chat.NewSession("chat-1", "stud-1", "", chat.AgentGeneral, time.Now())
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, session))

	handler := NewGetChatHistoryHandler(sessions, newFakeMessageRepo())

	_, err = handler.Handle(ctx, GetChatHistoryQuery{SessionID: "chat-1", StudentID: "stud-2"})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestGetChatHistoryHandler_UnknownSession(t *testing.T) {
	handler := NewGetChatHistoryHandler(newFakeChatSessionRepo(), newFakeMessageRepo())

	_, err := handler.Handle(context.Background(), GetChatHistoryQuery{SessionID: "ghost", StudentID: "stud-1"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListChatSessionsHandler_FiltersActive(t *testing.T) {
	ctx := context.Background()
	sessions := newFakeChatSessionRepo()
	messages := newFakeMessageRepo()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	open, err := chat.NewSession("chat-1", "stud-1", "slices", chat.AgentGeneral, now)
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, open))

	closed, err := chat.NewSession("chat-2", "stud-1", "maps", chat.AgentGeneral, now.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, closed))
	require.NoError(t, sessions.Close(ctx, "chat-2", now.Add(2*time.Hour)))

	handler := NewListChatSessionsHandler(sessions, messages)

	all, err := handler.Handle(ctx, ListChatSessionsQuery{StudentID: "stud-1"})
	require.NoError(t, err)
	assert.Len(t, all.Sessions, 2)

	active, err := handler.Handle(ctx, ListChatSessionsQuery{StudentID: "stud-1", OnlyActive: true})
	require.NoError(t, err)
	require.Len(t, active.Sessions, 1)
	assert.Equal(t, "chat-1", active.Sessions[0].ID)
}
