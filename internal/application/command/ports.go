// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/learnflow/learnflow-backend/internal/domain/chat"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SHARED DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// EventEmitter publishes domain events with fire-and-forget semantics.
// Emit never blocks on broker latency and never reports failure; a handler
// outcome must not depend on whether analytics received the event.
type EventEmitter interface {
	Emit(event shared.Event)
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	// Hash returns a one-way hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether the password matches the hash.
	Verify(hash, password string) bool
}

// AssistantResponder generates an assistant reply for a chat transcript.
// Implemented by the completion API client and by the development mock.
type AssistantResponder interface {
	Respond(ctx context.Context, agentType chat.AgentType, history []*chat.Message) (string, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// BCRYPT HASHER
// ══════════════════════════════════════════════════════════════════════════════

// BcryptHasher is the production PasswordHasher.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a hasher with the given cost.
// Cost outside bcrypt's valid range falls back to the default.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash implements PasswordHasher.
func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify implements PasswordHasher.
func (h *BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
