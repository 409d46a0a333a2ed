// Package jobs contains implementations of scheduled jobs for the
// LearnFlow backend.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnflow/learnflow-backend/internal/domain/auth"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
)

// EventEmitter publishes domain events with fire-and-forget semantics.
type EventEmitter interface {
	Emit(event shared.Event)
}

// ══════════════════════════════════════════════════════════════════════════════
// SWEEP SESSIONS JOB
// ══════════════════════════════════════════════════════════════════════════════

// SweepSessionsJob deletes auth sessions that expired before the retention
// window. Recently expired sessions are kept so a stale token still resolves
// to a clear "session expired" error instead of "not found".
type SweepSessionsJob struct {
	sessionRepo auth.Repository
	emitter     EventEmitter
	logger      *slog.Logger
	config      SweepSessionsConfig
}

// SweepSessionsConfig contains configuration for the sweep job.
type SweepSessionsConfig struct {
	// Retention is how long expired sessions are kept before deletion.
	Retention time.Duration

	// Timeout is the maximum duration for a single run.
	Timeout time.Duration
}

// DefaultSweepSessionsConfig returns sensible defaults.
func DefaultSweepSessionsConfig() SweepSessionsConfig {
	return SweepSessionsConfig{
		Retention: 24 * time.Hour,
		Timeout:   2 * time.Minute,
	}
}

// NewSweepSessionsJob creates a new sweep sessions job.
func NewSweepSessionsJob(
	sessionRepo auth.Repository,
	emitter EventEmitter,
	logger *slog.Logger,
	config SweepSessionsConfig,
) *SweepSessionsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Retention < 0 {
		config.Retention = 0
	}

	return &SweepSessionsJob{
		sessionRepo: sessionRepo,
		emitter:     emitter,
		logger:      logger,
		config:      config,
	}
}

// Name returns the job name.
func (j *SweepSessionsJob) Name() string {
	return "sweep_sessions"
}

// Description returns a human-readable description.
func (j *SweepSessionsJob) Description() string {
	return "Deletes auth sessions that expired before the retention window"
}

// Run executes the sweep.
func (j *SweepSessionsJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	cutoff := time.Now().Add(-j.config.Retention)

	deleted, err := j.sessionRepo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("sweep sessions: %w", err)
	}

	j.logger.Info("expired sessions swept",
		"deleted", deleted,
		"cutoff", cutoff.Format(time.RFC3339),
	)

	if j.emitter != nil && deleted > 0 {
		j.emitter.Emit(shared.NewSystemEvent(
			shared.EventSessionsSwept,
			"scheduler",
			"info",
			map[string]interface{}{
				"deleted": deleted,
				"cutoff":  cutoff.Format(time.RFC3339),
			},
		))
	}

	return nil
}
