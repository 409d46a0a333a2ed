// Package postgres implements the PostgreSQL persistence layer for the
// LearnFlow backend.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE STUDENTS & SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create students and auth sessions
-- Version: 001

CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    email VARCHAR(255) NOT NULL UNIQUE,
    display_name VARCHAR(255) NOT NULL,
    password_hash TEXT NOT NULL,
    grade_level VARCHAR(50) NOT NULL DEFAULT '',
    bio TEXT NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_students_email ON students(email);
CREATE INDEX IF NOT EXISTS idx_students_active ON students(active) WHERE active;

-- Auth sessions. Redis caches these by token; this table is the
-- source of truth and survives cache restarts.
-- Tokens are 64-char hex strings minted by auth.NewToken, not UUIDs.
CREATE TABLE IF NOT EXISTS auth_sessions (
    token VARCHAR(64) PRIMARY KEY,
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
    revoked BOOLEAN NOT NULL DEFAULT FALSE,
    revoked_at TIMESTAMP WITH TIME ZONE
);

CREATE INDEX IF NOT EXISTS idx_auth_sessions_student_id ON auth_sessions(student_id);
CREATE INDEX IF NOT EXISTS idx_auth_sessions_expires_at ON auth_sessions(expires_at);
`

const migration001Down = `
DROP TABLE IF EXISTS auth_sessions;
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE CHAT
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create chat sessions and messages
-- Version: 002

CREATE TABLE IF NOT EXISTS chat_sessions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    topic VARCHAR(255) NOT NULL DEFAULT '',
    agent_type VARCHAR(20) NOT NULL DEFAULT 'general',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    started_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    ended_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_agent_type CHECK (agent_type IN ('general', 'concepts', 'debug', 'exercise'))
);

CREATE INDEX IF NOT EXISTS idx_chat_sessions_student_id ON chat_sessions(student_id, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_chat_sessions_active ON chat_sessions(active) WHERE active;

CREATE TABLE IF NOT EXISTS chat_messages (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    session_id UUID NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
    role VARCHAR(20) NOT NULL,
    content TEXT NOT NULL,
    metadata JSONB,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_role CHECK (role IN ('user', 'assistant'))
);

-- Transcript reads always go through (session_id, created_at).
CREATE INDEX IF NOT EXISTS idx_chat_messages_session_time ON chat_messages(session_id, created_at);
`

const migration002Down = `
DROP TABLE IF EXISTS chat_messages;
DROP TABLE IF EXISTS chat_sessions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE EXERCISES
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create exercises, submissions and progress
-- Version: 003

CREATE TABLE IF NOT EXISTS exercises (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    title VARCHAR(255) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    difficulty VARCHAR(20) NOT NULL DEFAULT 'beginner',
    topic VARCHAR(255) NOT NULL DEFAULT '',
    starter_code TEXT NOT NULL DEFAULT '',
    expected_output TEXT NOT NULL DEFAULT '',
    test_cases JSONB,
    hints JSONB,
    solution_code TEXT NOT NULL DEFAULT '',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_difficulty CHECK (difficulty IN ('beginner', 'intermediate', 'advanced'))
);

CREATE INDEX IF NOT EXISTS idx_exercises_topic ON exercises(topic);
CREATE INDEX IF NOT EXISTS idx_exercises_active ON exercises(active) WHERE active;

CREATE TABLE IF NOT EXISTS submissions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    exercise_id UUID NOT NULL REFERENCES exercises(id) ON DELETE CASCADE,
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    code TEXT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'submitted',
    score INTEGER,
    feedback TEXT NOT NULL DEFAULT '',
    submitted_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    scored_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_submission_status CHECK (status IN ('submitted', 'passing', 'failing')),
    CONSTRAINT valid_score CHECK (score IS NULL OR (score >= 0 AND score <= 100))
);

CREATE INDEX IF NOT EXISTS idx_submissions_student_id ON submissions(student_id, submitted_at DESC);
CREATE INDEX IF NOT EXISTS idx_submissions_exercise_student ON submissions(exercise_id, student_id, submitted_at DESC);

CREATE TABLE IF NOT EXISTS progress (
    student_id UUID NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    exercise_id UUID NOT NULL REFERENCES exercises(id) ON DELETE CASCADE,
    status VARCHAR(20) NOT NULL DEFAULT 'in_progress',
    best_score INTEGER NOT NULL DEFAULT 0,
    attempts INTEGER NOT NULL DEFAULT 0,
    completed_at TIMESTAMP WITH TIME ZONE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (student_id, exercise_id),
    CONSTRAINT valid_progress_status CHECK (status IN ('not_started', 'in_progress', 'completed', 'mastered')),
    CONSTRAINT valid_best_score CHECK (best_score >= 0 AND best_score <= 100)
);

CREATE INDEX IF NOT EXISTS idx_progress_student_id ON progress(student_id);
`

const migration003Down = `
DROP TABLE IF EXISTS progress;
DROP TABLE IF EXISTS submissions;
DROP TABLE IF EXISTS exercises;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_students_sessions",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_chat",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_exercises",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}
