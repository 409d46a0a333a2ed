package jobs

import (
	"context"
	"log/slog"
)

// DeadLetterRedriver re-submits dead-lettered events for delivery.
type DeadLetterRedriver interface {
	Redrive(limit int) int
}

// ══════════════════════════════════════════════════════════════════════════════
// REDRIVE DEAD LETTERS JOB
// ══════════════════════════════════════════════════════════════════════════════

// RedriveDeadLettersJob periodically drains the publisher's dead letter
// queue back through the delivery path. Events failing again go straight
// back to the queue, so each run moves at most BatchLimit events.
type RedriveDeadLettersJob struct {
	redriver DeadLetterRedriver
	logger   *slog.Logger
	config   RedriveDeadLettersConfig
}

// RedriveDeadLettersConfig contains configuration for the redrive job.
type RedriveDeadLettersConfig struct {
	// BatchLimit caps how many events a single run re-submits.
	BatchLimit int
}

// DefaultRedriveDeadLettersConfig returns sensible defaults.
func DefaultRedriveDeadLettersConfig() RedriveDeadLettersConfig {
	return RedriveDeadLettersConfig{
		BatchLimit: 100,
	}
}

// NewRedriveDeadLettersJob creates a new redrive job.
func NewRedriveDeadLettersJob(
	redriver DeadLetterRedriver,
	logger *slog.Logger,
	config RedriveDeadLettersConfig,
) *RedriveDeadLettersJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchLimit <= 0 {
		config.BatchLimit = DefaultRedriveDeadLettersConfig().BatchLimit
	}

	return &RedriveDeadLettersJob{
		redriver: redriver,
		logger:   logger,
		config:   config,
	}
}

// Name returns the job name.
func (j *RedriveDeadLettersJob) Name() string {
	return "redrive_dead_letters"
}

// Description returns a human-readable description.
func (j *RedriveDeadLettersJob) Description() string {
	return "Re-submits dead-lettered events for delivery"
}

// Run executes the redrive. Re-submitted events are delivered on the
// publisher's own background goroutines, so a run returns immediately.
func (j *RedriveDeadLettersJob) Run(_ context.Context) error {
	redriven := j.redriver.Redrive(j.config.BatchLimit)
	if redriven > 0 {
		j.logger.Info("dead-lettered events redriven",
			"redriven", redriven,
		)
	}

	return nil
}
