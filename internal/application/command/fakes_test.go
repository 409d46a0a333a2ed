package command

import (
	"context"
	"sort"
	"time"

	"github.com/learnflow/learnflow-backend/internal/domain/auth"
	"github.com/learnflow/learnflow-backend/internal/domain/chat"
	"github.com/learnflow/learnflow-backend/internal/domain/exercise"
	"github.com/learnflow/learnflow-backend/internal/domain/shared"
	"github.com/learnflow/learnflow-backend/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// TEST FAKES
// In-memory repository implementations for handler tests.
// ══════════════════════════════════════════════════════════════════════════════

type fakeEmitter struct {
	events []shared.Event
}

func (f *fakeEmitter) Emit(event shared.Event) {
	f.events = append(f.events, event)
}

func (f *fakeEmitter) typesSeen() []string {
	types := make([]string, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, string(e.EventType()))
	}
	return types
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (fakeHasher) Verify(hash, password string) bool { return hash == "hashed:"+password }

type fakeResponder struct {
	reply   string
	err     error
	history []*chat.Message
	calls   int
}

func (f *fakeResponder) Respond(_ context.Context, _ chat.AgentType, history []*chat.Message) (string, error) {
	f.calls++
	f.history = history
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Student repository
// ─────────────────────────────────────────────────────────────────────────────

type fakeStudentRepo struct {
	students map[string]*student.Student
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{students: make(map[string]*student.Student)}
}

func (f *fakeStudentRepo) Create(_ context.Context, s *student.Student) error {
	for _, existing := range f.students {
		if existing.Email == s.Email {
			return student.ErrStudentAlreadyExists
		}
	}
	f.students[s.ID] = s
	return nil
}

func (f *fakeStudentRepo) GetByID(_ context.Context, id string) (*student.Student, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, student.ErrStudentNotFound
	}
	return s, nil
}

func (f *fakeStudentRepo) GetByEmail(_ context.Context, email student.Email) (*student.Student, error) {
	for _, s := range f.students {
		if s.Email == email.Normalized() {
			return s, nil
		}
	}
	return nil, student.ErrStudentNotFound
}

func (f *fakeStudentRepo) Update(_ context.Context, s *student.Student) error {
	if _, ok := f.students[s.ID]; !ok {
		return student.ErrStudentNotFound
	}
	f.students[s.ID] = s
	return nil
}

func (f *fakeStudentRepo) Deactivate(_ context.Context, id string) error {
	s, ok := f.students[id]
	if !ok {
		return student.ErrStudentNotFound
	}
	s.Active = false
	return nil
}

func (f *fakeStudentRepo) GetAll(_ context.Context, _ student.ListOptions) ([]*student.Student, error) {
	out := make([]*student.Student, 0, len(f.students))
	for _, s := range f.students {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStudentRepo) Count(_ context.Context) (int, error) { return len(f.students), nil }

func (f *fakeStudentRepo) ExistsByEmail(_ context.Context, email student.Email) (bool, error) {
	for _, s := range f.students {
		if s.Email == email.Normalized() {
			return true, nil
		}
	}
	return false, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Session repository and cache
// ─────────────────────────────────────────────────────────────────────────────

type fakeSessionRepo struct {
	sessions   map[auth.Token]*auth.Session
	countCalls int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[auth.Token]*auth.Session)}
}

func (f *fakeSessionRepo) Create(_ context.Context, s *auth.Session) error {
	f.sessions[s.Token] = s
	return nil
}

func (f *fakeSessionRepo) GetByToken(_ context.Context, token auth.Token) (*auth.Session, error) {
	s, ok := f.sessions[token]
	if !ok {
		return nil, auth.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessionRepo) Revoke(_ context.Context, token auth.Token, at time.Time) error {
	if s, ok := f.sessions[token]; ok {
		s.Revoke(at)
	}
	return nil
}

func (f *fakeSessionRepo) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	removed := 0
	for token, s := range f.sessions {
		if s.ExpiresAt.Before(cutoff) {
			delete(f.sessions, token)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeSessionRepo) CountActive(_ context.Context, studentID string, now time.Time) (int, error) {
	f.countCalls++
	count := 0
	for _, s := range f.sessions {
		if s.StudentID == studentID && s.CheckValid(now) == nil {
			count++
		}
	}
	return count, nil
}

type fakeSessionCache struct {
	entries map[auth.Token]*auth.Session
	sets    int
	deletes int
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{entries: make(map[auth.Token]*auth.Session)}
}

func (f *fakeSessionCache) Get(_ context.Context, token auth.Token) (*auth.Session, error) {
	s, ok := f.entries[token]
	if !ok {
		return nil, auth.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeSessionCache) Set(_ context.Context, s *auth.Session, _ time.Duration) error {
	f.sets++
	f.entries[s.Token] = s
	return nil
}

func (f *fakeSessionCache) Delete(_ context.Context, token auth.Token) error {
	f.deletes++
	delete(f.entries, token)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Chat repositories
// ─────────────────────────────────────────────────────────────────────────────

type fakeChatSessionRepo struct {
	sessions map[string]*chat.Session
}

func newFakeChatSessionRepo() *fakeChatSessionRepo {
	return &fakeChatSessionRepo{sessions: make(map[string]*chat.Session)}
}

func (f *fakeChatSessionRepo) Create(_ context.Context, s *chat.Session) error {
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeChatSessionRepo) GetByID(_ context.Context, id string) (*chat.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, chat.ErrSessionNotFound
	}
	return s, nil
}

func (f *fakeChatSessionRepo) ListByStudent(_ context.Context, studentID string, opts chat.SessionListOptions) ([]*chat.Session, error) {
	out := make([]*chat.Session, 0)
	for _, s := range f.sessions {
		if s.StudentID != studentID {
			continue
		}
		if opts.OnlyActive && !s.Active {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (f *fakeChatSessionRepo) Close(_ context.Context, id string, endedAt time.Time) error {
	s, ok := f.sessions[id]
	if !ok {
		return chat.ErrSessionNotFound
	}
	s.Close(endedAt)
	return nil
}

func (f *fakeChatSessionRepo) CloseStale(_ context.Context, cutoff time.Time) (int, error) {
	closed := 0
	for _, s := range f.sessions {
		if s.Active && s.StartedAt.Before(cutoff) {
			s.Close(cutoff)
			closed++
		}
	}
	return closed, nil
}

type fakeMessageRepo struct {
	messages map[string][]*chat.Message // keyed by session ID
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string][]*chat.Message)}
}

func (f *fakeMessageRepo) Append(_ context.Context, msg *chat.Message) error {
	tail := f.messages[msg.SessionID]
	if n := len(tail); n > 0 && msg.CreatedAt.Before(tail[n-1].CreatedAt) {
		msg.CreatedAt = tail[n-1].CreatedAt
	}
	f.messages[msg.SessionID] = append(tail, msg)
	return nil
}

func (f *fakeMessageRepo) ListBySession(_ context.Context, sessionID string) ([]*chat.Message, error) {
	return f.messages[sessionID], nil
}

func (f *fakeMessageRepo) RecentContext(_ context.Context, sessionID string, limit int) ([]*chat.Message, error) {
	all := f.messages[sessionID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (f *fakeMessageRepo) CountBySession(_ context.Context, sessionID string) (int, error) {
	return len(f.messages[sessionID]), nil
}

func (f *fakeMessageRepo) LastTimestamp(_ context.Context, sessionID string) (time.Time, error) {
	all := f.messages[sessionID]
	if len(all) == 0 {
		return time.Time{}, nil
	}
	return all[len(all)-1].CreatedAt, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Exercise repositories
// ─────────────────────────────────────────────────────────────────────────────

type fakeExerciseRepo struct {
	exercises map[string]*exercise.Exercise
}

func newFakeExerciseRepo() *fakeExerciseRepo {
	return &fakeExerciseRepo{exercises: make(map[string]*exercise.Exercise)}
}

func (f *fakeExerciseRepo) Create(_ context.Context, ex *exercise.Exercise) error {
	f.exercises[ex.ID] = ex
	return nil
}

func (f *fakeExerciseRepo) GetByID(_ context.Context, id string) (*exercise.Exercise, error) {
	ex, ok := f.exercises[id]
	if !ok {
		return nil, exercise.ErrExerciseNotFound
	}
	return ex, nil
}

func (f *fakeExerciseRepo) List(_ context.Context, opts exercise.ListOptions) ([]*exercise.Exercise, error) {
	out := make([]*exercise.Exercise, 0)
	for _, ex := range f.exercises {
		if opts.OnlyActive && !ex.Active {
			continue
		}
		out = append(out, ex)
	}
	return out, nil
}

func (f *fakeExerciseRepo) Update(_ context.Context, ex *exercise.Exercise) error {
	if _, ok := f.exercises[ex.ID]; !ok {
		return exercise.ErrExerciseNotFound
	}
	f.exercises[ex.ID] = ex
	return nil
}

type fakeSubmissionRepo struct {
	submissions map[string]*exercise.Submission
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{submissions: make(map[string]*exercise.Submission)}
}

func (f *fakeSubmissionRepo) Create(_ context.Context, sub *exercise.Submission) error {
	f.submissions[sub.ID] = sub
	return nil
}

func (f *fakeSubmissionRepo) GetByID(_ context.Context, id string) (*exercise.Submission, error) {
	sub, ok := f.submissions[id]
	if !ok {
		return nil, exercise.ErrSubmissionNotFound
	}
	return sub, nil
}

func (f *fakeSubmissionRepo) Update(_ context.Context, sub *exercise.Submission) error {
	if _, ok := f.submissions[sub.ID]; !ok {
		return exercise.ErrSubmissionNotFound
	}
	f.submissions[sub.ID] = sub
	return nil
}

func (f *fakeSubmissionRepo) ListByStudent(_ context.Context, studentID string, _, _ int) ([]*exercise.Submission, error) {
	out := make([]*exercise.Submission, 0)
	for _, sub := range f.submissions {
		if sub.StudentID == studentID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (f *fakeSubmissionRepo) ListByExercise(_ context.Context, studentID, exerciseID string) ([]*exercise.Submission, error) {
	out := make([]*exercise.Submission, 0)
	for _, sub := range f.submissions {
		if sub.StudentID == studentID && sub.ExerciseID == exerciseID {
			out = append(out, sub)
		}
	}
	return out, nil
}

type fakeProgressRepo struct {
	rollups map[string]*exercise.Progress // keyed by student:exercise
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rollups: make(map[string]*exercise.Progress)}
}

func progressKey(studentID, exerciseID string) string { return studentID + ":" + exerciseID }

func (f *fakeProgressRepo) Upsert(_ context.Context, p *exercise.Progress) error {
	f.rollups[progressKey(p.StudentID, p.ExerciseID)] = p
	return nil
}

func (f *fakeProgressRepo) Get(_ context.Context, studentID, exerciseID string) (*exercise.Progress, error) {
	p, ok := f.rollups[progressKey(studentID, exerciseID)]
	if !ok {
		return nil, exercise.ErrProgressNotFound
	}
	return p, nil
}

func (f *fakeProgressRepo) ListByStudent(_ context.Context, studentID string) ([]*exercise.Progress, error) {
	out := make([]*exercise.Progress, 0)
	for _, p := range f.rollups {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Shared setup helpers
// ─────────────────────────────────────────────────────────────────────────────

func mustStudent(id, email, password string) *student.Student {
	s, err := student.NewStudent(student.NewStudentParams{
		ID:           id,
		Email:        student.Email(email),
		DisplayName:  "Test Student",
		PasswordHash: "hashed:" + password,
	})
	if err != nil {
		panic(err)
	}
	return s
}
