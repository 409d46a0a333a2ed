package redis

import (
	"context"
	"time"

	"github.com/learnflow/learnflow-backend/internal/domain/auth"
)

// sessionEntry is the cached wire form of an auth session.
type sessionEntry struct {
	Token     string     `json:"token"`
	StudentID string     `json:"student_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// SessionCache implements auth.Cache using the generic Redis Cache.
// Entries expire with the session's remaining lifetime, so Redis drops
// stale tokens on its own; PostgreSQL stays the source of truth.
type SessionCache struct {
	cache *Cache
}

// NewSessionCache creates a new SessionCache.
func NewSessionCache(cache *Cache) *SessionCache {
	return &SessionCache{cache: cache}
}

// Get returns a cached session or auth.ErrSessionNotFound on a miss.
// A miss is not an auth failure - the caller falls through to postgres.
func (c *SessionCache) Get(ctx context.Context, token auth.Token) (*auth.Session, error) {
	var entry sessionEntry
	if err := c.cache.Get(ctx, SessionKey(string(token)), &entry); err != nil {
		if err == ErrCacheMiss {
			return nil, auth.ErrSessionNotFound
		}
		return nil, err
	}

	return &auth.Session{
		Token:     auth.Token(entry.Token),
		StudentID: entry.StudentID,
		CreatedAt: entry.CreatedAt,
		ExpiresAt: entry.ExpiresAt,
		Revoked:   entry.Revoked,
		RevokedAt: entry.RevokedAt,
	}, nil
}

// Set caches a session for the given TTL. A non-positive TTL means the
// session has no remaining lifetime and nothing is written.
func (c *SessionCache) Set(ctx context.Context, session *auth.Session, ttl time.Duration) error {
	if session == nil || ttl <= 0 {
		return nil
	}
	if ttl > TTLSessionData {
		ttl = TTLSessionData
	}

	entry := sessionEntry{
		Token:     string(session.Token),
		StudentID: session.StudentID,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
		Revoked:   session.Revoked,
		RevokedAt: session.RevokedAt,
	}

	return c.cache.Set(ctx, SessionKey(entry.Token), entry, ttl)
}

// Delete evicts a token, e.g. after revocation.
func (c *SessionCache) Delete(ctx context.Context, token auth.Token) error {
	return c.cache.Delete(ctx, SessionKey(string(token)))
}
