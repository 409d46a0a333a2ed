package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnflow/learnflow-backend/internal/domain/auth"
	"github.com/learnflow/learnflow-backend/internal/domain/chat"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeEmitter struct {
	events []shared.Event
}

func (f *fakeEmitter) Emit(event shared.Event) {
	f.events = append(f.events, event)
}

type fakeSessionRepo struct {
	deleted     int
	deleteErr   error
	seenCutoffs []time.Time
}

func (f *fakeSessionRepo) Create(_ context.Context, _ *auth.Session) error { return nil }

func (f *fakeSessionRepo) GetByToken(_ context.Context, _ auth.Token) (*auth.Session, error) {
	return nil, auth.ErrSessionNotFound
}

func (f *fakeSessionRepo) Revoke(_ context.Context, _ auth.Token, _ time.Time) error { return nil }

func (f *fakeSessionRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	f.seenCutoffs = append(f.seenCutoffs, cutoff)
	return f.deleted, f.deleteErr
}

func (f *fakeSessionRepo) CountActive(_ context.Context, _ string, _ time.Time) (int, error) {
	return 0, nil
}

type fakeChatSessionRepo struct {
	closed      int
	closeErr    error
	seenCutoffs []time.Time
}

func (f *fakeChatSessionRepo) Create(_ context.Context, _ *chat.Session) error { return nil }

func (f *fakeChatSessionRepo) GetByID(_ context.Context, _ string) (*chat.Session, error) {
	return nil, chat.ErrSessionNotFound
}

func (f *fakeChatSessionRepo) ListByStudent(_ context.Context, _ string, _ chat.SessionListOptions) ([]*chat.Session, error) {
	return nil, nil
}

func (f *fakeChatSessionRepo) Close(_ context.Context, _ string, _ time.Time) error { return nil }

func (f *fakeChatSessionRepo) CloseStale(_ context.Context, cutoff time.Time) (int, error) {
	f.seenCutoffs = append(f.seenCutoffs, cutoff)
	return f.closed, f.closeErr
}

// ─────────────────────────────────────────────────────────────────────────────
// SweepSessionsJob
// ─────────────────────────────────────────────────────────────────────────────

func TestSweepSessionsJob_EmitsEventWhenSessionsDeleted(t *testing.T) {
	repo := &fakeSessionRepo{deleted: 7}
	emitter := &fakeEmitter{}

	cfg := DefaultSweepSessionsConfig()
	cfg.Retention = 24 * time.Hour
	job := NewSweepSessionsJob(repo, emitter, nil, cfg)

	err := job.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.seenCutoffs, 1)
	// The cutoff trails now by the retention window.
	lag := time.Since(repo.seenCutoffs[0])
	assert.InDelta(t, (24 * time.Hour).Seconds(), lag.Seconds(), 5)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, shared.EventSessionsSwept, emitter.events[0].EventType())
}

func TestSweepSessionsJob_NoEventWhenNothingDeleted(t *testing.T) {
	repo := &fakeSessionRepo{deleted: 0}
	emitter := &fakeEmitter{}

	job := NewSweepSessionsJob(repo, emitter, nil, DefaultSweepSessionsConfig())

	err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, emitter.events)
}

func TestSweepSessionsJob_PropagatesRepositoryError(t *testing.T) {
	repo := &fakeSessionRepo{deleteErr: errors.New("connection reset")}
	job := NewSweepSessionsJob(repo, &fakeEmitter{}, nil, DefaultSweepSessionsConfig())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep sessions")
}

// ─────────────────────────────────────────────────────────────────────────────
// CloseStaleChatsJob
// ─────────────────────────────────────────────────────────────────────────────

func TestCloseStaleChatsJob_ClosesIdleSessions(t *testing.T) {
	repo := &fakeChatSessionRepo{closed: 3}
	emitter := &fakeEmitter{}

	cfg := DefaultCloseStaleChatsConfig()
	cfg.IdleTimeout = 2 * time.Hour
	job := NewCloseStaleChatsJob(repo, emitter, nil, cfg)

	err := job.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.seenCutoffs, 1)
	lag := time.Since(repo.seenCutoffs[0])
	assert.InDelta(t, (2 * time.Hour).Seconds(), lag.Seconds(), 5)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, shared.EventStaleChatsClosed, emitter.events[0].EventType())
}

func TestCloseStaleChatsJob_NoEventWhenNothingClosed(t *testing.T) {
	repo := &fakeChatSessionRepo{closed: 0}
	emitter := &fakeEmitter{}

	job := NewCloseStaleChatsJob(repo, emitter, nil, DefaultCloseStaleChatsConfig())

	err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, emitter.events)
}

func TestCloseStaleChatsJob_PropagatesRepositoryError(t *testing.T) {
	repo := &fakeChatSessionRepo{closeErr: errors.New("deadlock detected")}
	job := NewCloseStaleChatsJob(repo, &fakeEmitter{}, nil, DefaultCloseStaleChatsConfig())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close stale chats")
}

// ─────────────────────────────────────────────────────────────────────────────
// RedriveDeadLettersJob
// ─────────────────────────────────────────────────────────────────────────────

type fakeRedriver struct {
	pending    int
	seenLimits []int
}

func (f *fakeRedriver) Redrive(limit int) int {
	f.seenLimits = append(f.seenLimits, limit)
	n := f.pending
	if n > limit {
		n = limit
	}
	f.pending -= n
	return n
}

func TestRedriveDeadLettersJob_PassesBatchLimit(t *testing.T) {
	redriver := &fakeRedriver{pending: 250}

	cfg := RedriveDeadLettersConfig{BatchLimit: 100}
	job := NewRedriveDeadLettersJob(redriver, nil, cfg)

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, redriver.seenLimits, 1)
	assert.Equal(t, 100, redriver.seenLimits[0])
	assert.Equal(t, 150, redriver.pending)
}

func TestRedriveDeadLettersJob_EmptyQueueIsNoop(t *testing.T) {
	redriver := &fakeRedriver{}
	job := NewRedriveDeadLettersJob(redriver, nil, DefaultRedriveDeadLettersConfig())

	require.NoError(t, job.Run(context.Background()))
	assert.Zero(t, redriver.pending)
}

func TestRedriveDeadLettersJob_DefaultsBatchLimit(t *testing.T) {
	redriver := &fakeRedriver{pending: 5}
	job := NewRedriveDeadLettersJob(redriver, nil, RedriveDeadLettersConfig{})

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, redriver.seenLimits, 1)
	assert.Equal(t, DefaultRedriveDeadLettersConfig().BatchLimit, redriver.seenLimits[0])
}
