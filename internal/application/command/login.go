package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnflow/learnflow-backend/internal/domain/auth"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/internal/domain/student"
	"github.com/learnflow/learnflow-backend/pkg/logger"
	"github.com/learnflow/learnflow-backend/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOGIN COMMAND
// Verifies credentials and issues a fresh 24h session. Multiple concurrent
// sessions per student are allowed; a new login never revokes older ones.
// ══════════════════════════════════════════════════════════════════════════════

// LoginCommand contains login credentials.
type LoginCommand struct {
	// Email is the login identity.
	Email string

	// Password is the plaintext credential to verify.
	Password string
}

// Validate validates the command.
func (c LoginCommand) Validate() error {
	if c.Email == "" {
		return errors.New("login: email is required")
	}
	if c.Password == "" {
		return errors.New("login: password is required")
	}
	return nil
}

// LoginResult contains the issued session.
type LoginResult struct {
	// Student is the authenticated account.
	Student *student.Student

	// Session is the issued session; its token goes back to the client.
	Session *auth.Session
}

// LoginHandler handles the LoginCommand.
type LoginHandler struct {
	studentRepo student.Repository
	sessionRepo auth.Repository
	cache       auth.Cache
	hasher      PasswordHasher
	emitter     EventEmitter
	clock       timeutil.Clock
	sessionTTL  time.Duration
	logger      *logger.Logger
}

// LoginHandlerConfig contains configuration for the handler.
type LoginHandlerConfig struct {
	// SessionTTL is the validity window for issued sessions.
	SessionTTL time.Duration

	// Clock supplies the current time; nil uses the system clock.
	Clock timeutil.Clock
}

// NewLoginHandler creates a new LoginHandler. The cache is optional.
func NewLoginHandler(
	studentRepo student.Repository,
	sessionRepo auth.Repository,
	cache auth.Cache,
	hasher PasswordHasher,
	emitter EventEmitter,
	config LoginHandlerConfig,
	log *logger.Logger,
) *LoginHandler {
	if config.SessionTTL <= 0 {
		config.SessionTTL = auth.DefaultSessionTTL
	}
	if config.Clock == nil {
		config.Clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Default()
	}
	return &LoginHandler{
		studentRepo: studentRepo,
		sessionRepo: sessionRepo,
		cache:       cache,
		hasher:      hasher,
		emitter:     emitter,
		clock:       config.Clock,
		sessionTTL:  config.SessionTTL,
		logger:      log,
	}
}

// Handle executes the login command.
func (h *LoginHandler) Handle(ctx context.Context, cmd LoginCommand) (*LoginResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("auth", "Login", shared.ErrInvalidInput, "invalid login request", err)
	}

	email := student.Email(cmd.Email).Normalized()

	s, err := h.studentRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, student.ErrStudentNotFound) {
			// Same error as a wrong password, to avoid account enumeration.
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: lookup: %w", err)
	}

	if !h.hasher.Verify(s.PasswordHash, cmd.Password) {
		return nil, shared.ErrInvalidCredentials
	}

	if !s.CanLogin() {
		return nil, shared.ErrStudentInactive
	}

	token, err := auth.NewToken()
	if err != nil {
		return nil, fmt.Errorf("login: mint token: %w", err)
	}

	now := h.clock.Now()
	session, err := auth.NewSession(token, s.ID, now, h.sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("login: new session: %w", err)
	}

	if err := h.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("login: save session: %w", err)
	}

	// Write-through cache keyed by token. Postgres stays the source of
	// truth; a cache write failure only costs a fallback read later.
	if h.cache != nil {
		if err := h.cache.Set(ctx, session, session.RemainingTTL(now)); err != nil {
			h.logger.Warn("session cache write failed",
				logger.SessionToken(session.Token.String()),
				logger.Err(err),
			)
		}
	}

	h.emitter.Emit(shared.NewStudentLoggedInEvent(s.ID, s.Email.String()))

	// Best effort: the count is informational and must not fail the login.
	activeSessions, err := h.sessionRepo.CountActive(ctx, s.ID, now)
	if err != nil {
		activeSessions = -1
	}

	h.logger.Info("student logged in",
		logger.StudentID(s.ID),
		logger.SessionToken(session.Token.String()),
		logger.Int("active_sessions", activeSessions),
	)

	return &LoginResult{Student: s, Session: session}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LOGOUT COMMAND
// Revokes a session. Revoking twice, or revoking an unknown token, is a
// deliberate no-op: logout must always succeed from the client's view.
// ══════════════════════════════════════════════════════════════════════════════

// LogoutCommand revokes a session token.
type LogoutCommand struct {
	// Token is the session token to revoke.
	Token string
}

// LogoutHandler handles the LogoutCommand.
type LogoutHandler struct {
	sessionRepo auth.Repository
	cache       auth.Cache
	clock       timeutil.Clock
	logger      *logger.Logger
}

// NewLogoutHandler creates a new LogoutHandler. The cache is optional.
func NewLogoutHandler(sessionRepo auth.Repository, cache auth.Cache, clock timeutil.Clock, log *logger.Logger) *LogoutHandler {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Default()
	}
	return &LogoutHandler{
		sessionRepo: sessionRepo,
		cache:       cache,
		clock:       clock,
		logger:      log,
	}
}

// Handle executes the logout command.
func (h *LogoutHandler) Handle(ctx context.Context, cmd LogoutCommand) error {
	token := auth.Token(cmd.Token)
	if !token.IsValid() {
		return nil
	}

	if err := h.sessionRepo.Revoke(ctx, token, h.clock.Now()); err != nil {
		return fmt.Errorf("logout: revoke: %w", err)
	}

	if h.cache != nil {
		if err := h.cache.Delete(ctx, token); err != nil {
			h.logger.Warn("session cache delete failed",
				logger.SessionToken(token.String()),
				logger.Err(err),
			)
		}
	}

	return nil
}
