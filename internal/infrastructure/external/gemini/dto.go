package gemini

import (
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION REQUEST/RESPONSE
// ══════════════════════════════════════════════════════════════════════════════

// The Gemini API exposes an OpenAI-compatible chat completions surface at
// /chat/completions; these DTOs follow that wire format.

// MessageDTO is one turn in the completion conversation.
type MessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequestDTO is the chat completion request body.
type CompletionRequestDTO struct {
	Model       string       `json:"model"`
	Messages    []MessageDTO `json:"messages"`
	Temperature float64      `json:"temperature,omitempty"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
}

// ChoiceDTO is one completion candidate.
type ChoiceDTO struct {
	Index        int        `json:"index"`
	Message      MessageDTO `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

// UsageDTO reports token accounting for the request.
type UsageDTO struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponseDTO is the chat completion response body.
type CompletionResponseDTO struct {
	ID      string      `json:"id"`
	Object  string      `json:"object"`
	Created int64       `json:"created"`
	Model   string      `json:"model"`
	Choices []ChoiceDTO `json:"choices"`
	Usage   *UsageDTO   `json:"usage,omitempty"`
}

// CreatedAt returns the response creation time.
func (r *CompletionResponseDTO) CreatedAt() time.Time {
	return time.Unix(r.Created, 0).UTC()
}

// Reply returns the content of the first choice, or "" if there is none.
func (r *CompletionResponseDTO) Reply() (string, bool) {
	if len(r.Choices) == 0 {
		return "", false
	}
	return r.Choices[0].Message.Content, true
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR RESPONSES
// ══════════════════════════════════════════════════════════════════════════════

// APIErrorDTO is the error body returned by the completion API.
type APIErrorDTO struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// apiErrorEnvelope wraps the error object on the wire.
type apiErrorEnvelope struct {
	Error APIErrorDTO `json:"error"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("completion api error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("completion api error (status %d): %s", e.Status, e.Message)
}

// IsRetryable reports whether the error is worth retrying.
func (e *APIErrorDTO) IsRetryable() bool {
	return e.Status >= 500 || e.Status == 429
}
