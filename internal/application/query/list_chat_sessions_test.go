package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnflow/learnflow-backend/internal/domain/chat"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
)

func TestListChatSessionsHandler_TranscriptSummaries(t *testing.T) {
	ctx := context.Background()
	sessions := newFakeChatSessionRepo()
	messages := newFakeMessageRepo()
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	withMessages, err := chat.NewSession("chat-1", "stud-1", "recursion", chat.AgentConcepts, started)
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, withMessages))

	empty, err := chat.NewSession("chat-2", "stud-1", "slices", chat.AgentGeneral, started.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, empty))

	first, err := chat.NewMessage("msg-1", "chat-1", chat.RoleUser, "what is a base case?", nil, started.Add(time.Minute))
	require.NoError(t, err)
	require.NoError(t, messages.Append(ctx, first))
	last, err := chat.NewMessage("msg-2", "chat-1", chat.RoleAssistant, "the stopping condition", nil, started.Add(2*time.Minute))
	require.NoError(t, err)
	require.NoError(t, messages.Append(ctx, last))

	handler := NewListChatSessionsHandler(sessions, messages)
	result, err := handler.Handle(ctx, ListChatSessionsQuery{StudentID: "stud-1"})
	require.NoError(t, err)
	require.Len(t, result.Sessions, 2)

	byID := make(map[string]ChatSessionDTO, 2)
	for _, dto := range result.Sessions {
		byID[dto.ID] = dto
	}

	assert.Equal(t, 2, byID["chat-1"].MessageCount)
	if assert.NotNil(t, byID["chat-1"].LastMessageAt) {
		assert.Equal(t, last.CreatedAt, *byID["chat-1"].LastMessageAt)
	}

	// An empty transcript has no last-message timestamp at all.
	assert.Zero(t, byID["chat-2"].MessageCount)
	assert.Nil(t, byID["chat-2"].LastMessageAt)
}

func TestListChatSessionsHandler_RequiresStudentID(t *testing.T) {
	handler := NewListChatSessionsHandler(newFakeChatSessionRepo(), newFakeMessageRepo())

	_, err := handler.Handle(context.Background(), ListChatSessionsQuery{})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
