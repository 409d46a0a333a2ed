package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/learnflow/learnflow-backend/internal/domain/chat"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
)

func testHistory(t *testing.T) []*chat.Message {
	t.Helper()
	now := time.Now()
	m1, err := chat.NewMessage("m1", "s1", chat.RoleUser, "What is a slice?", nil, now)
	assert.NoError(t, err)
	m2, err := chat.NewMessage("m2", "s1", chat.RoleAssistant, "A slice is a view over an array.", nil, now.Add(time.Second))
	assert.NoError(t, err)
	m3, err := chat.NewMessage("m3", "s1", chat.RoleUser, "How does append work?", nil, now.Add(2*time.Second))
	assert.NoError(t, err)
	return []*chat.Message{m1, m2, m3}
}

func testClient(baseURL string) *Client {
	cfg := DefaultClientConfig("test-key")
	cfg.BaseURL = baseURL
	cfg.RateLimiterConfig = UnlimitedRateLimiterConfig()
	return NewClient(cfg)
}

func TestClientRespond(t *testing.T) {
	var captured CompletionRequestDTO
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		resp := CompletionResponseDTO{
			ID:    "cmpl-1",
			Model: DefaultModel,
			Choices: []ChoiceDTO{
				{Message: MessageDTO{Role: "assistant", Content: "append may reallocate the backing array."}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := testClient(server.URL)
	reply, err := client.Respond(context.Background(), chat.AgentConcepts, testHistory(t))

	assert.NoError(t, err)
	assert.Equal(t, "append may reallocate the backing array.", reply)

	// System prompt first, then the transcript in order.
	assert.Len(t, captured.Messages, 4)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "subject matter expert")
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "What is a slice?", captured.Messages[1].Content)
	assert.Equal(t, "assistant", captured.Messages[2].Role)
	assert.Equal(t, DefaultModel, captured.Model)
}

func TestClientRespondServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Respond(context.Background(), chat.AgentGeneral, testHistory(t))

	assert.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
	assert.True(t, shared.IsUpstreamFailure(err))
}

func TestClientRespondRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","code":"rate_limit"}}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Respond(context.Background(), chat.AgentGeneral, testHistory(t))

	assert.ErrorIs(t, err, shared.ErrRateLimited)
	assert.True(t, shared.IsUpstreamFailure(err))
}

func TestClientRespondEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"cmpl-2","choices":[]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Respond(context.Background(), chat.AgentGeneral, testHistory(t))

	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
}

func TestClientCircuitOpensAfterFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(server.URL)

	// CompletionAPIBreaker opens after 3 consecutive failures.
	for i := 0; i < 3; i++ {
		_, err := client.Respond(context.Background(), chat.AgentGeneral, testHistory(t))
		assert.Error(t, err)
	}

	assert.Equal(t, "open", client.Status().CircuitState)

	_, err := client.Respond(context.Background(), chat.AgentGeneral, testHistory(t))
	assert.ErrorIs(t, err, shared.ErrServiceUnavailable)
}

func TestCompletionResponseParsing(t *testing.T) {
	jsonData := `{
	"id": "chatcmpl-abc123",
	"object": "chat.completion",
	"created": 1756700000,
	"model": "gemini-2.5-flash",
	"choices": [
		{
			"index": 0,
			"message": {"role": "assistant", "content": "Slices share backing arrays."},
			"finish_reason": "stop"
		}
	],
	"usage": {"prompt_tokens": 42, "completion_tokens": 9, "total_tokens": 51}
}`

	var resp CompletionResponseDTO
	err := json.Unmarshal([]byte(jsonData), &resp)
	assert.NoError(t, err)

	assert.Equal(t, "chatcmpl-abc123", resp.ID)
	assert.Equal(t, "gemini-2.5-flash", resp.Model)

	reply, ok := resp.Reply()
	assert.True(t, ok)
	assert.Equal(t, "Slices share backing arrays.", reply)

	assert.Equal(t, 51, resp.Usage.TotalTokens)
	assert.Equal(t, 2025, resp.CreatedAt().Year())
}

func TestMockResponderCyclesPerAgent(t *testing.T) {
	mock := NewMockResponder()
	ctx := context.Background()

	first, err := mock.Respond(ctx, chat.AgentDebug, nil)
	assert.NoError(t, err)
	second, err := mock.Respond(ctx, chat.AgentDebug, nil)
	assert.NoError(t, err)
	assert.NotEqual(t, first, second)

	// Unknown agent types fall back to the general persona.
	reply, err := mock.Respond(ctx, chat.AgentType("unknown"), nil)
	assert.NoError(t, err)
	assert.Contains(t, mockResponses[chat.AgentGeneral], reply)
}

func TestSystemPromptFallback(t *testing.T) {
	mapper := NewMapper()
	assert.Equal(t, mapper.SystemPromptFor(chat.AgentGeneral), mapper.SystemPromptFor(chat.AgentType("nope")))
	assert.Contains(t, mapper.SystemPromptFor(chat.AgentDebug), "debug")
}
