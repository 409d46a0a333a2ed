package auth

import (
	"context"
	"time"
)

// Repository defines the persistence contract for sessions.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Create stores a newly issued session.
	Create(ctx context.Context, session *Session) error

	// GetByToken returns the session for the given token.
	// Returns ErrSessionNotFound if the token is unknown.
	GetByToken(ctx context.Context, token Token) (*Session, error)

	// Revoke marks the session as revoked. Revoking an unknown token
	// is a no-op, not an error.
	Revoke(ctx context.Context, token Token, at time.Time) error

	// DeleteExpired removes sessions whose expiry is before the cutoff.
	// Returns the number of sessions removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)

	// CountActive returns the number of unexpired, unrevoked sessions
	// for a student.
	CountActive(ctx context.Context, studentID string, now time.Time) (int, error)
}

// Cache defines an optional read-through cache for sessions keyed by
// token. A cache miss must never be treated as an authentication
// failure; callers fall back to the Repository.
type Cache interface {
	// Get returns the cached session, or a miss error.
	Get(ctx context.Context, token Token) (*Session, error)

	// Set caches the session for at most ttl.
	Set(ctx context.Context, session *Session, ttl time.Duration) error

	// Delete removes the session from the cache.
	Delete(ctx context.Context, token Token) error
}
