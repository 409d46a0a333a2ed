package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/learnflow/learnflow-backend/internal/domain/auth"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTH SESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository implements auth.Repository for PostgreSQL.
// It is the source of truth for session tokens; the Redis cache in
// front of it only shortens the lookup path.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

// Create stores a freshly issued session.
func (r *SessionRepository) Create(ctx context.Context, s *auth.Session) error {
	query := `
		INSERT INTO auth_sessions (token, student_id, created_at, expires_at, revoked, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		string(s.Token),
		s.StudentID,
		s.CreatedAt,
		s.ExpiresAt,
		s.Revoked,
		s.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByToken returns a session by token.
func (r *SessionRepository) GetByToken(ctx context.Context, token auth.Token) (*auth.Session, error) {
	query := `
		SELECT token, student_id, created_at, expires_at, revoked, revoked_at
		FROM auth_sessions
		WHERE token = $1
	`

	row := r.conn.QueryRow(ctx, query, string(token))
	return r.scanSession(row)
}

// Revoke marks the session revoked, keeping the first revocation
// timestamp. Unknown tokens and already revoked sessions are no-ops.
func (r *SessionRepository) Revoke(ctx context.Context, token auth.Token, at time.Time) error {
	query := `
		UPDATE auth_sessions
		SET revoked = TRUE, revoked_at = $1
		WHERE token = $2 AND NOT revoked
	`

	_, err := r.conn.Exec(ctx, query, at.UTC(), string(token))
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	return nil
}

// DeleteExpired removes sessions that expired before the cutoff and
// returns how many rows were deleted.
func (r *SessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	query := `DELETE FROM auth_sessions WHERE expires_at <= $1`

	result, err := r.conn.Exec(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// CountActive returns the number of live (unexpired, unrevoked)
// sessions held by one student.
func (r *SessionRepository) CountActive(ctx context.Context, studentID string, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM auth_sessions
		WHERE student_id = $1 AND NOT revoked AND expires_at > $2
	`

	var count int
	if err := r.conn.QueryRow(ctx, query, studentID, now.UTC()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return count, nil
}

func (r *SessionRepository) scanSession(row pgx.Row) (*auth.Session, error) {
	var s auth.Session
	var token string

	err := row.Scan(
		&token,
		&s.StudentID,
		&s.CreatedAt,
		&s.ExpiresAt,
		&s.Revoked,
		&s.RevokedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	s.Token = auth.Token(token)
	return &s, nil
}
