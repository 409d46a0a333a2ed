package query

import (
	"context"
	"time"

	"github.com/learnflow/learnflow-backend/internal/domain/auth"
	"github.com/learnflow/learnflow-backend/internal/domain/chat"
	"github.com/learnflow/learnflow-backend/internal/domain/exercise"
	"github.com/learnflow/learnflow-backend/internal/domain/student"
)

// In-memory fakes for query handler tests.

type fakeStudentRepo struct {
	students map[string]*student.Student
}

func newFakeStudentRepo() *fakeStudentRepo {
	return &fakeStudentRepo{students: make(map[string]*student.Student)}
}

func (f *fakeStudentRepo) Create(_ context.Context, s *student.Student) error {
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
	f.students[s.ID] = s
	return nil
}

func (f *fakeStudentRepo) Deactivate(_ context.Context, id string) error {
	if s, ok := f.students[id]; ok {
		s.Active = false
	}
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
	_, err := f.GetByEmail(context.Background(), email)
	return err == nil, nil
}

type fakeSessionRepo struct {
	sessions map[auth.Token]*auth.Session
	getCalls int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[auth.Token]*auth.Session)}
}

func (f *fakeSessionRepo) Create(_ context.Context, s *auth.Session) error {
	f.sessions[s.Token] = s
	return nil
}

func (f *fakeSessionRepo) GetByToken(_ context.Context, token auth.Token) (*auth.Session, error) {
	f.getCalls++
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
	return out, nil
}

func (f *fakeChatSessionRepo) Close(_ context.Context, id string, endedAt time.Time) error {
	if s, ok := f.sessions[id]; ok {
		s.Close(endedAt)
	}
	return nil
}

func (f *fakeChatSessionRepo) CloseStale(_ context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

type fakeMessageRepo struct {
	messages map[string][]*chat.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string][]*chat.Message)}
}

func (f *fakeMessageRepo) Append(_ context.Context, msg *chat.Message) error {
	f.messages[msg.SessionID] = append(f.messages[msg.SessionID], msg)
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

type fakeProgressRepo struct {
	rollups map[string]*exercise.Progress
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{rollups: make(map[string]*exercise.Progress)}
}

func (f *fakeProgressRepo) Upsert(_ context.Context, p *exercise.Progress) error {
	f.rollups[p.StudentID+":"+p.ExerciseID] = p
	return nil
}

func (f *fakeProgressRepo) Get(_ context.Context, studentID, exerciseID string) (*exercise.Progress, error) {
	p, ok := f.rollups[studentID+":"+exerciseID]
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

func mustStudent(id, email string) *student.Student {
	s, err := student.NewStudent(student.NewStudentParams{
		ID:           id,
		Email:        student.Email(email),
		DisplayName:  "Test Student",
		PasswordHash: "hashed",
	})
	if err != nil {
		panic(err)
	}
	return s
}
