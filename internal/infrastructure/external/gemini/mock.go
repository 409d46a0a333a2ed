package gemini

import (
	"context"
	"sync"

	"github.com/learnflow/learnflow-backend/internal/domain/chat"
)

// ══════════════════════════════════════════════════════════════════════════════
// MOCK RESPONDER
// ══════════════════════════════════════════════════════════════════════════════

// mockResponses holds canned replies per agent persona, used when no API key
// is configured. The texts match the development fallbacks students see in
// local environments.
var mockResponses = map[chat.AgentType][]string{
	chat.AgentGeneral: {
		"I'm here to help! What would you like to learn about?",
		"That's a great question! Based on what you're studying, you might want to focus on understanding the core concepts first.",
		"I see. Let me help you break this down into smaller parts to make it easier to understand.",
		"Good thinking! Have you tried practicing with some examples to reinforce this concept?",
	},
	chat.AgentConcepts: {
		"This concept is fundamental to programming. Think of it like...",
		"Let me explain this step by step so it makes sense.",
		"This is similar to something you might see in real-world programming.",
		"The key insight here is understanding how these parts work together.",
	},
	chat.AgentDebug: {
		"I see what might be happening. Can you tell me what output you're getting?",
		"Let's trace through your code step by step. What's the first thing that happens?",
		"Here's a hint: check what the value of this variable is at this point.",
		"Try running this part of your code separately to isolate the problem.",
	},
	chat.AgentExercise: {
		"Great effort! Let's work through this together. What part are you stuck on?",
		"You're on the right track! Let me guide you through the next step.",
		"Think about what this step should do. What do you expect to happen?",
		"Good! Now try applying the same logic to solve the rest of the problem.",
	},
}

// MockResponder returns canned replies per agent persona, cycling through
// them round-robin so repeated turns in one session vary. It satisfies the
// same responder port as Client and is wired in when no API key is set.
type MockResponder struct {
	mu      sync.Mutex
	cursors map[chat.AgentType]int
}

// NewMockResponder creates a mock responder.
func NewMockResponder() *MockResponder {
	return &MockResponder{
		cursors: make(map[chat.AgentType]int),
	}
}

// Respond returns the next canned reply for the agent type. It never fails.
func (m *MockResponder) Respond(_ context.Context, agentType chat.AgentType, _ []*chat.Message) (string, error) {
	responses, ok := mockResponses[agentType]
	if !ok {
		responses = mockResponses[chat.AgentGeneral]
		agentType = chat.AgentGeneral
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	reply := responses[m.cursors[agentType]%len(responses)]
	m.cursors[agentType]++
	return reply, nil
}
