package gemini

import (
	"errors"
	"strings"

	"github.com/learnflow/learnflow-backend/internal/domain/chat"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER - Domain to DTO transformations
// ══════════════════════════════════════════════════════════════════════════════

// ErrNilDTO is returned when a nil DTO is passed to a mapper.
var ErrNilDTO = errors.New("nil DTO")

// Mapper builds completion requests from chat transcripts and extracts the
// assistant reply from responses. This is the anti-corruption layer between
// the chat domain and the completion API wire format.
type Mapper struct{}

// NewMapper creates a new Mapper instance.
func NewMapper() *Mapper {
	return &Mapper{}
}

// systemPrompts maps each agent persona to its instruction.
var systemPrompts = map[chat.AgentType]string{
	chat.AgentGeneral:  "You are a helpful educational assistant on the LearnFlow platform. Assist students with their learning queries.",
	chat.AgentConcepts: "You are a subject matter expert. Explain complex concepts in simple terms for students.",
	chat.AgentDebug:    "You are a coding mentor. Help students debug their code by providing guidance and hints rather than direct solutions.",
	chat.AgentExercise: "You are a tutor. Help students work through their exercises step-by-step.",
}

// SystemPromptFor returns the persona instruction for an agent type.
// Unknown types fall back to the general persona.
func (m *Mapper) SystemPromptFor(agentType chat.AgentType) string {
	if prompt, ok := systemPrompts[agentType]; ok {
		return prompt
	}
	return systemPrompts[chat.AgentGeneral]
}

// CompletionRequest builds the request body: persona system prompt first,
// then the transcript in the order given (callers pass chronological order).
func (m *Mapper) CompletionRequest(model string, agentType chat.AgentType, history []*chat.Message, temperature float64, maxTokens int) CompletionRequestDTO {
	messages := make([]MessageDTO, 0, len(history)+1)
	messages = append(messages, MessageDTO{
		Role:    "system",
		Content: m.SystemPromptFor(agentType),
	})

	for _, msg := range history {
		if msg == nil {
			continue
		}
		messages = append(messages, MessageDTO{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	return CompletionRequestDTO{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

// ReplyFromResponse extracts the assistant reply text.
func (m *Mapper) ReplyFromResponse(dto *CompletionResponseDTO) (string, error) {
	if dto == nil {
		return "", ErrNilDTO
	}

	reply, ok := dto.Reply()
	if !ok {
		return "", errors.New("completion response has no choices")
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.New("completion response is empty")
	}

	return reply, nil
}
