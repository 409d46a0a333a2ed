// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"

	"github.com/learnflow/learnflow-backend/internal/domain/auth"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/internal/domain/student"
	"github.com/learnflow/learnflow-backend/pkg/logger"
	"github.com/learnflow/learnflow-backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALIDATE SESSION QUERY
// Resolves a bearer token to its session and owning student. This is a
// pure read: validation never extends the session lifetime, so a token
// issued at T is dead at T+24h no matter how often it was checked.
// ══════════════════════════════════════════════════════════════════════════════

// ValidateSessionQuery contains the token to resolve.
type ValidateSessionQuery struct {
	// Token is the opaque session token from the request.
	Token string
}

// Validate validates the query.
func (q ValidateSessionQuery) Validate() error {
	if q.Token == "" {
		return errors.New("validate_session: token is required")
	}
	return nil
}

// ValidateSessionResult contains the resolved session and student.
type ValidateSessionResult struct {
	Session *auth.Session
	Student *student.Student
}

// ValidateSessionHandler handles the ValidateSessionQuery.
type ValidateSessionHandler struct {
	sessionRepo auth.Repository
	cache       auth.Cache // optional, nil disables caching
	studentRepo student.Repository
	clock       timeutil.Clock
	logger      *logger.Logger
}

// NewValidateSessionHandler creates a new handler. cache may be nil.
func NewValidateSessionHandler(
	sessionRepo auth.Repository,
	cache auth.Cache,
	studentRepo student.Repository,
	clock timeutil.Clock,
	log *logger.Logger,
) *ValidateSessionHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Default()
	}
	return &ValidateSessionHandler{
		sessionRepo: sessionRepo,
		cache:       cache,
		studentRepo: studentRepo,
		clock:       clock,
		logger:      log,
	}
}

// Handle executes the validate session query.
func (h *ValidateSessionHandler) Handle(ctx context.Context, q ValidateSessionQuery) (*ValidateSessionResult, error) {
	if err := q.Validate(); err != nil {
		return nil, shared.ErrSessionNotFound
	}

	token := auth.Token(q.Token)
	if !token.IsValid() {
		return nil, shared.ErrSessionNotFound
	}

	session, fromCache := h.lookupSession(ctx, token)
	if session == nil {
		return nil, shared.ErrSessionNotFound
	}

	now := h.clock.Now()
	if err := session.CheckValid(now); err != nil {
		// Stale cache entries for dead sessions are dropped eagerly.
		if fromCache && h.cache != nil {
			_ = h.cache.Delete(ctx, token)
		}
		switch {
		case errors.Is(err, auth.ErrSessionExpired):
			return nil, shared.ErrSessionExpired
		case errors.Is(err, auth.ErrSessionRevoked):
			return nil, shared.ErrSessionRevoked
		default:
			return nil, shared.ErrSessionNotFound
		}
	}

	stud, err := h.studentRepo.GetByID(ctx, session.StudentID)
	if err != nil {
		if errors.Is(err, student.ErrStudentNotFound) {
			return nil, shared.ErrSessionNotFound
		}
		return nil, err
	}
	if !stud.Active {
		return nil, shared.ErrStudentInactive
	}

	// Backfill the cache on a repository hit so the next check is cheap.
	if !fromCache && h.cache != nil {
		if ttl := session.RemainingTTL(now); ttl > 0 {
			if err := h.cache.Set(ctx, session, ttl); err != nil {
				h.logger.Warn("session cache backfill failed",
					logger.SessionToken(string(token)),
					logger.Err(err),
				)
			}
		}
	}

	return &ValidateSessionResult{Session: session, Student: stud}, nil
}

// lookupSession tries the cache first, then the repository. The bool
// reports whether the session came from the cache.
func (h *ValidateSessionHandler) lookupSession(ctx context.Context, token auth.Token) (*auth.Session, bool) {
	if h.cache != nil {
		if session, err := h.cache.Get(ctx, token); err == nil && session != nil {
			return session, true
		}
	}

	session, err := h.sessionRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, false
	}
	return session, false
}
