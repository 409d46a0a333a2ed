package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/learnflow/learnflow-backend/internal/domain/chat"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHAT SESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ChatSessionRepository implements chat.SessionRepository for PostgreSQL.
type ChatSessionRepository struct {
	conn *Connection
}

// NewChatSessionRepository creates a new ChatSessionRepository.
func NewChatSessionRepository(conn *Connection) *ChatSessionRepository {
	return &ChatSessionRepository{conn: conn}
}

// Create stores a newly opened session.
func (r *ChatSessionRepository) Create(ctx context.Context, s *chat.Session) error {
	query := `
		INSERT INTO chat_sessions (id, student_id, topic, agent_type, active, started_at, ended_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		s.StudentID,
		s.Topic,
		string(s.AgentType),
		s.Active,
		s.StartedAt,
		s.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create chat session: %w", err)
	}

	return nil
}

// GetByID returns a session by ID.
func (r *ChatSessionRepository) GetByID(ctx context.Context, id string) (*chat.Session, error) {
	query := `
		SELECT id, student_id, topic, agent_type, active, started_at, ended_at
		FROM chat_sessions
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanSession(row)
}

// ListByStudent returns the student's sessions, newest first.
func (r *ChatSessionRepository) ListByStudent(ctx context.Context, studentID string, opts chat.SessionListOptions) ([]*chat.Session, error) {
	query := `
		SELECT id, student_id, topic, agent_type, active, started_at, ended_at
		FROM chat_sessions
		WHERE student_id = $1
	`

	if opts.OnlyActive {
		query += " AND active"
	}

	query += " ORDER BY started_at DESC LIMIT $2 OFFSET $3"

	rows, err := r.conn.Query(ctx, query, studentID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	defer rows.Close()

	return r.scanSessions(rows)
}

// Close marks the session closed. An already closed session keeps its
// first end timestamp, so the update is a no-op for it.
func (r *ChatSessionRepository) Close(ctx context.Context, id string, endedAt time.Time) error {
	query := `
		UPDATE chat_sessions
		SET active = FALSE, ended_at = $1
		WHERE id = $2 AND active
	`

	result, err := r.conn.Exec(ctx, query, endedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to close chat session: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish "already closed" (fine) from "missing" (error).
		var exists bool
		if err := r.conn.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM chat_sessions WHERE id = $1)", id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check chat session existence: %w", err)
		}
		if !exists {
			return chat.ErrSessionNotFound
		}
	}

	return nil
}

// CloseStale closes open sessions with no message newer than the cutoff.
// Sessions that never received a message age out by their start time.
func (r *ChatSessionRepository) CloseStale(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE chat_sessions
		SET active = FALSE, ended_at = NOW()
		WHERE active
		  AND COALESCE(
			(SELECT MAX(created_at) FROM chat_messages WHERE session_id = chat_sessions.id),
			started_at
		  ) < $1
	`

	result, err := r.conn.Exec(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to close stale chat sessions: %w", err)
	}

	return int(result.RowsAffected()), nil
}

func (r *ChatSessionRepository) scanSession(row pgx.Row) (*chat.Session, error) {
	var s chat.Session
	var agentType string

	err := row.Scan(
		&s.ID,
		&s.StudentID,
		&s.Topic,
		&agentType,
		&s.Active,
		&s.StartedAt,
		&s.EndedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, chat.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to scan chat session: %w", err)
	}

	s.AgentType = chat.AgentType(agentType)
	return &s, nil
}

func (r *ChatSessionRepository) scanSessions(rows pgx.Rows) ([]*chat.Session, error) {
	sessions := make([]*chat.Session, 0)

	for rows.Next() {
		var s chat.Session
		var agentType string

		err := rows.Scan(
			&s.ID,
			&s.StudentID,
			&s.Topic,
			&agentType,
			&s.Active,
			&s.StartedAt,
			&s.EndedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat session row: %w", err)
		}

		s.AgentType = chat.AgentType(agentType)
		sessions = append(sessions, &s)
	}

	return sessions, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// CHAT MESSAGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ChatMessageRepository implements chat.MessageRepository for PostgreSQL.
type ChatMessageRepository struct {
	conn *Connection
}

// NewChatMessageRepository creates a new ChatMessageRepository.
func NewChatMessageRepository(conn *Connection) *ChatMessageRepository {
	return &ChatMessageRepository{conn: conn}
}

// Append stores a message at the tail of the session transcript.
// The insert clamps created_at to the newest existing timestamp of the
// session, so per-session ordering stays non-decreasing even if the
// caller's clock stepped backwards.
func (r *ChatMessageRepository) Append(ctx context.Context, msg *chat.Message) error {
	var metadataJSON []byte
	if msg.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal message metadata: %w", err)
		}
	}

	query := `
		INSERT INTO chat_messages (id, session_id, role, content, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, GREATEST(
			$6::timestamptz,
			COALESCE((SELECT MAX(created_at) FROM chat_messages WHERE session_id = $2), $6::timestamptz)
		))
		RETURNING created_at
	`

	err := r.conn.QueryRow(ctx, query,
		msg.ID,
		msg.SessionID,
		string(msg.Role),
		msg.Content,
		metadataJSON,
		msg.CreatedAt,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}

	return nil
}

// ListBySession returns the full transcript in chronological order.
func (r *ChatMessageRepository) ListBySession(ctx context.Context, sessionID string) ([]*chat.Message, error) {
	query := `
		SELECT id, session_id, role, content, metadata, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.conn.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	return r.scanMessages(rows)
}

// RecentContext returns the last limit messages in chronological order.
// Queries newest-first with a limit, then reverses in memory.
func (r *ChatMessageRepository) RecentContext(ctx context.Context, sessionID string, limit int) ([]*chat.Message, error) {
	if limit <= 0 {
		limit = chat.DefaultContextLimit
	}

	query := `
		SELECT id, session_id, role, content, metadata, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.conn.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent context: %w", err)
	}
	defer rows.Close()

	messages, err := r.scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// CountBySession returns the transcript length.
func (r *ChatMessageRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM chat_messages WHERE session_id = $1",
		sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chat messages: %w", err)
	}
	return count, nil
}

// LastTimestamp returns the newest message timestamp in the session,
// or the zero time for an empty transcript.
func (r *ChatMessageRepository) LastTimestamp(ctx context.Context, sessionID string) (time.Time, error) {
	var last *time.Time
	err := r.conn.QueryRow(ctx,
		"SELECT MAX(created_at) FROM chat_messages WHERE session_id = $1",
		sessionID,
	).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query last message timestamp: %w", err)
	}

	if last == nil {
		return time.Time{}, nil
	}
	return last.UTC(), nil
}

func (r *ChatMessageRepository) scanMessages(rows pgx.Rows) ([]*chat.Message, error) {
	messages := make([]*chat.Message, 0)

	for rows.Next() {
		var m chat.Message
		var role string
		var metadataJSON []byte

		err := rows.Scan(
			&m.ID,
			&m.SessionID,
			&role,
			&m.Content,
			&metadataJSON,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat message row: %w", err)
		}

		m.Role = chat.Role(role)
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal message metadata: %w", err)
			}
		}

		messages = append(messages, &m)
	}

	return messages, rows.Err()
}
