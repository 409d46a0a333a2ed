package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/learnflow/learnflow-backend/internal/domain/exercise"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXERCISE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ExerciseRepository implements exercise.Repository for PostgreSQL.
type ExerciseRepository struct {
	conn *Connection
}

// NewExerciseRepository creates a new ExerciseRepository.
func NewExerciseRepository(conn *Connection) *ExerciseRepository {
	return &ExerciseRepository{conn: conn}
}

// Create stores a published exercise with its teaching content.
// Test cases and hints go into JSONB columns, like chat message metadata.
func (r *ExerciseRepository) Create(ctx context.Context, ex *exercise.Exercise) error {
	testCasesJSON, hintsJSON, err := marshalContent(ex.Content)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO exercises (id, title, description, difficulty, topic,
			starter_code, expected_output, test_cases, hints, solution_code,
			active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.conn.Exec(ctx, query,
		ex.ID,
		ex.Title,
		ex.Description,
		string(ex.Difficulty),
		ex.Topic,
		ex.Content.StarterCode,
		ex.Content.ExpectedOutput,
		testCasesJSON,
		hintsJSON,
		ex.Content.SolutionCode,
		ex.Active,
		ex.CreatedAt,
		ex.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create exercise: %w", err)
	}

	return nil
}

const exerciseColumns = `id, title, description, difficulty, topic,
	starter_code, expected_output, test_cases, hints, solution_code,
	active, created_at, updated_at`

// GetByID returns an exercise by ID.
func (r *ExerciseRepository) GetByID(ctx context.Context, id string) (*exercise.Exercise, error) {
	query := `
		SELECT ` + exerciseColumns + `
		FROM exercises
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanExercise(row)
}

// List returns exercises matching the filter, newest first.
func (r *ExerciseRepository) List(ctx context.Context, opts exercise.ListOptions) ([]*exercise.Exercise, error) {
	query := `
		SELECT ` + exerciseColumns + `
		FROM exercises
		WHERE ($1 = '' OR topic = $1)
		  AND ($2 = '' OR difficulty = $2)
	`

	if opts.OnlyActive {
		query += " AND active"
	}

	query += " ORDER BY created_at DESC LIMIT $3 OFFSET $4"

	rows, err := r.conn.Query(ctx, query, opts.Topic, string(opts.Difficulty), opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}
	defer rows.Close()

	exercises := make([]*exercise.Exercise, 0)
	for rows.Next() {
		ex, err := r.scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, ex)
	}

	return exercises, rows.Err()
}

// Update updates an exercise.
func (r *ExerciseRepository) Update(ctx context.Context, ex *exercise.Exercise) error {
	testCasesJSON, hintsJSON, err := marshalContent(ex.Content)
	if err != nil {
		return err
	}

	query := `
		UPDATE exercises SET
			title = $1, description = $2, difficulty = $3, topic = $4,
			starter_code = $5, expected_output = $6, test_cases = $7,
			hints = $8, solution_code = $9, active = $10, updated_at = $11
		WHERE id = $12
	`

	result, err := r.conn.Exec(ctx, query,
		ex.Title,
		ex.Description,
		string(ex.Difficulty),
		ex.Topic,
		ex.Content.StarterCode,
		ex.Content.ExpectedOutput,
		testCasesJSON,
		hintsJSON,
		ex.Content.SolutionCode,
		ex.Active,
		time.Now().UTC(),
		ex.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update exercise: %w", err)
	}

	if result.RowsAffected() == 0 {
		return exercise.ErrExerciseNotFound
	}

	return nil
}

func (r *ExerciseRepository) scanExercise(row pgx.Row) (*exercise.Exercise, error) {
	var ex exercise.Exercise
	var difficulty string
	var testCasesJSON, hintsJSON []byte

	err := row.Scan(
		&ex.ID,
		&ex.Title,
		&ex.Description,
		&difficulty,
		&ex.Topic,
		&ex.Content.StarterCode,
		&ex.Content.ExpectedOutput,
		&testCasesJSON,
		&hintsJSON,
		&ex.Content.SolutionCode,
		&ex.Active,
		&ex.CreatedAt,
		&ex.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, exercise.ErrExerciseNotFound
		}
		return nil, fmt.Errorf("failed to scan exercise: %w", err)
	}

	ex.Difficulty = exercise.Difficulty(difficulty)
	if len(testCasesJSON) > 0 {
		if err := json.Unmarshal(testCasesJSON, &ex.Content.TestCases); err != nil {
			return nil, fmt.Errorf("failed to unmarshal exercise test cases: %w", err)
		}
	}
	if len(hintsJSON) > 0 {
		if err := json.Unmarshal(hintsJSON, &ex.Content.Hints); err != nil {
			return nil, fmt.Errorf("failed to unmarshal exercise hints: %w", err)
		}
	}
	return &ex, nil
}

// marshalContent serializes the JSONB content columns. Empty slices
// stay NULL in the database.
func marshalContent(c exercise.Content) (testCases, hints []byte, err error) {
	if c.TestCases != nil {
		testCases, err = json.Marshal(c.TestCases)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal exercise test cases: %w", err)
		}
	}
	if c.Hints != nil {
		hints, err = json.Marshal(c.Hints)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal exercise hints: %w", err)
		}
	}
	return testCases, hints, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBMISSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SubmissionRepository implements exercise.SubmissionRepository for PostgreSQL.
type SubmissionRepository struct {
	conn *Connection
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(conn *Connection) *SubmissionRepository {
	return &SubmissionRepository{conn: conn}
}

// Create records a new attempt.
func (r *SubmissionRepository) Create(ctx context.Context, sub *exercise.Submission) error {
	query := `
		INSERT INTO submissions (id, exercise_id, student_id, code, status, score, feedback, submitted_at, scored_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		sub.ID,
		sub.ExerciseID,
		sub.StudentID,
		sub.Code,
		string(sub.Status),
		sub.Score,
		sub.Feedback,
		sub.SubmittedAt,
		sub.ScoredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

// GetByID returns a submission by ID.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*exercise.Submission, error) {
	query := `
		SELECT id, exercise_id, student_id, code, status, score, feedback, submitted_at, scored_at
		FROM submissions
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanSubmission(row)
}

// Update persists the scoring result.
func (r *SubmissionRepository) Update(ctx context.Context, sub *exercise.Submission) error {
	query := `
		UPDATE submissions SET
			status = $1, score = $2, feedback = $3, scored_at = $4
		WHERE id = $5
	`

	result, err := r.conn.Exec(ctx, query,
		string(sub.Status),
		sub.Score,
		sub.Feedback,
		sub.ScoredAt,
		sub.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}

	if result.RowsAffected() == 0 {
		return exercise.ErrSubmissionNotFound
	}

	return nil
}

// ListByStudent returns the student's attempts, newest first.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID string, limit, offset int) ([]*exercise.Submission, error) {
	query := `
		SELECT id, exercise_id, student_id, code, status, score, feedback, submitted_at, scored_at
		FROM submissions
		WHERE student_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.Query(ctx, query, studentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	return r.scanSubmissions(rows)
}

// ListByExercise returns attempts at one exercise by one student, newest first.
func (r *SubmissionRepository) ListByExercise(ctx context.Context, studentID, exerciseID string) ([]*exercise.Submission, error) {
	query := `
		SELECT id, exercise_id, student_id, code, status, score, feedback, submitted_at, scored_at
		FROM submissions
		WHERE student_id = $1 AND exercise_id = $2
		ORDER BY submitted_at DESC
	`

	rows, err := r.conn.Query(ctx, query, studentID, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions by exercise: %w", err)
	}
	defer rows.Close()

	return r.scanSubmissions(rows)
}

func (r *SubmissionRepository) scanSubmission(row pgx.Row) (*exercise.Submission, error) {
	var sub exercise.Submission
	var status string

	err := row.Scan(
		&sub.ID,
		&sub.ExerciseID,
		&sub.StudentID,
		&sub.Code,
		&status,
		&sub.Score,
		&sub.Feedback,
		&sub.SubmittedAt,
		&sub.ScoredAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, exercise.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}

	sub.Status = exercise.SubmissionStatus(status)
	return &sub, nil
}

func (r *SubmissionRepository) scanSubmissions(rows pgx.Rows) ([]*exercise.Submission, error) {
	subs := make([]*exercise.Submission, 0)

	for rows.Next() {
		var sub exercise.Submission
		var status string

		err := rows.Scan(
			&sub.ID,
			&sub.ExerciseID,
			&sub.StudentID,
			&sub.Code,
			&status,
			&sub.Score,
			&sub.Feedback,
			&sub.SubmittedAt,
			&sub.ScoredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}

		sub.Status = exercise.SubmissionStatus(status)
		subs = append(subs, &sub)
	}

	return subs, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements exercise.ProgressRepository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// Upsert inserts or replaces the rollup for the (student, exercise) pair.
func (r *ProgressRepository) Upsert(ctx context.Context, p *exercise.Progress) error {
	query := `
		INSERT INTO progress (student_id, exercise_id, status, best_score, attempts, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, exercise_id) DO UPDATE SET
			status = EXCLUDED.status,
			best_score = EXCLUDED.best_score,
			attempts = EXCLUDED.attempts,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		p.StudentID,
		p.ExerciseID,
		string(p.Status),
		p.BestScore,
		p.Attempts,
		p.CompletedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert progress: %w", err)
	}

	return nil
}

// Get returns the rollup or exercise.ErrProgressNotFound.
func (r *ProgressRepository) Get(ctx context.Context, studentID, exerciseID string) (*exercise.Progress, error) {
	query := `
		SELECT student_id, exercise_id, status, best_score, attempts, completed_at, updated_at
		FROM progress
		WHERE student_id = $1 AND exercise_id = $2
	`

	var p exercise.Progress
	var status string

	err := r.conn.QueryRow(ctx, query, studentID, exerciseID).Scan(
		&p.StudentID,
		&p.ExerciseID,
		&status,
		&p.BestScore,
		&p.Attempts,
		&p.CompletedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, exercise.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to scan progress: %w", err)
	}

	p.Status = exercise.ProgressStatus(status)
	return &p, nil
}

// ListByStudent returns all rollups for a student.
func (r *ProgressRepository) ListByStudent(ctx context.Context, studentID string) ([]*exercise.Progress, error) {
	query := `
		SELECT student_id, exercise_id, status, best_score, attempts, completed_at, updated_at
		FROM progress
		WHERE student_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	result := make([]*exercise.Progress, 0)
	for rows.Next() {
		var p exercise.Progress
		var status string

		err := rows.Scan(
			&p.StudentID,
			&p.ExerciseID,
			&status,
			&p.BestScore,
			&p.Attempts,
			&p.CompletedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}

		p.Status = exercise.ProgressStatus(status)
		result = append(result, &p)
	}

	return result, rows.Err()
}
