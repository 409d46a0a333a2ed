package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnflow/learnflow-backend/internal/domain/chat"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLOSE STALE CHATS JOB
// ══════════════════════════════════════════════════════════════════════════════

// CloseStaleChatsJob closes chat sessions that have been idle past the
// configured timeout. Abandoned sessions otherwise stay open forever and
// keep showing up in active listings.
type CloseStaleChatsJob struct {
	sessionRepo chat.SessionRepository
	emitter     EventEmitter
	logger      *slog.Logger
	config      CloseStaleChatsConfig
}

// CloseStaleChatsConfig contains configuration for the job.
type CloseStaleChatsConfig struct {
	// IdleTimeout is how long a session may be idle before it is closed.
	IdleTimeout time.Duration

	// Timeout is the maximum duration for a single run.
	Timeout time.Duration
}

// DefaultCloseStaleChatsConfig returns sensible defaults.
func DefaultCloseStaleChatsConfig() CloseStaleChatsConfig {
	return CloseStaleChatsConfig{
		IdleTimeout: 2 * time.Hour,
		Timeout:     2 * time.Minute,
	}
}

// NewCloseStaleChatsJob creates a new close stale chats job.
func NewCloseStaleChatsJob(
	sessionRepo chat.SessionRepository,
	emitter EventEmitter,
	logger *slog.Logger,
	config CloseStaleChatsConfig,
) *CloseStaleChatsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = DefaultCloseStaleChatsConfig().IdleTimeout
	}

	return &CloseStaleChatsJob{
		sessionRepo: sessionRepo,
		emitter:     emitter,
		logger:      logger,
		config:      config,
	}
}

// Name returns the job name.
func (j *CloseStaleChatsJob) Name() string {
	return "close_stale_chats"
}

// Description returns a human-readable description.
func (j *CloseStaleChatsJob) Description() string {
	return "Closes chat sessions idle past the configured timeout"
}

// Run executes the job.
func (j *CloseStaleChatsJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	cutoff := time.Now().Add(-j.config.IdleTimeout)

	closed, err := j.sessionRepo.CloseStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("close stale chats: %w", err)
	}

	j.logger.Info("stale chat sessions closed",
		"closed", closed,
		"idle_timeout", j.config.IdleTimeout.String(),
	)

	if j.emitter != nil && closed > 0 {
		j.emitter.Emit(shared.NewSystemEvent(
			shared.EventStaleChatsClosed,
			"scheduler",
			"info",
			map[string]interface{}{
				"closed":       closed,
				"idle_timeout": j.config.IdleTimeout.String(),
			},
		))
	}

	return nil
}
