package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/learnflow/learnflow-backend/internal/domain/student"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create creates a new student.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	query := `
		INSERT INTO students (
			id, email, display_name, password_hash, grade_level, bio,
			active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		s.ID,
		string(s.Email),
		s.DisplayName,
		s.PasswordHash,
		string(s.GradeLevel),
		s.Bio,
		s.Active,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return student.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// GetByID returns a student by internal ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	query := `
		SELECT id, email, display_name, password_hash, grade_level, bio,
			   active, created_at, updated_at
		FROM students
		WHERE id = $1
	`

	row := r.conn.QueryRow(ctx, query, id)
	return r.scanStudent(row)
}

// GetByEmail returns a student by normalized email.
func (r *StudentRepository) GetByEmail(ctx context.Context, email student.Email) (*student.Student, error) {
	query := `
		SELECT id, email, display_name, password_hash, grade_level, bio,
			   active, created_at, updated_at
		FROM students
		WHERE email = $1
	`

	row := r.conn.QueryRow(ctx, query, string(email.Normalized()))
	return r.scanStudent(row)
}

// Update updates a student.
func (r *StudentRepository) Update(ctx context.Context, s *student.Student) error {
	query := `
		UPDATE students SET
			email = $1,
			display_name = $2,
			password_hash = $3,
			grade_level = $4,
			bio = $5,
			active = $6,
			updated_at = $7
		WHERE id = $8
	`

	result, err := r.conn.Exec(ctx, query,
		string(s.Email),
		s.DisplayName,
		s.PasswordHash,
		string(s.GradeLevel),
		s.Bio,
		s.Active,
		time.Now().UTC(),
		s.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return student.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to update student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return student.ErrStudentNotFound
	}

	return nil
}

// Deactivate performs a soft delete on a student.
func (r *StudentRepository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE students
		SET active = FALSE, updated_at = $1
		WHERE id = $2
	`

	result, err := r.conn.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return student.ErrStudentNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Bulk Operations
// ─────────────────────────────────────────────────────────────────────────────

// GetAll returns all students with pagination.
func (r *StudentRepository) GetAll(ctx context.Context, opts student.ListOptions) ([]*student.Student, error) {
	query := `
		SELECT id, email, display_name, password_hash, grade_level, bio,
			   active, created_at, updated_at
		FROM students
	`

	if !opts.IncludeInactive {
		query += " WHERE active"
	}

	query += " ORDER BY created_at DESC LIMIT $1 OFFSET $2"

	rows, err := r.conn.Query(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	return r.scanStudents(rows)
}

// Count returns the total number of students.
func (r *StudentRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM students").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return count, nil
}

// ExistsByEmail checks whether an account with the email exists.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email student.Email) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM students WHERE email = $1)",
		string(email.Normalized()),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *StudentRepository) scanStudent(row pgx.Row) (*student.Student, error) {
	var s student.Student
	var email, gradeLevel string

	err := row.Scan(
		&s.ID,
		&email,
		&s.DisplayName,
		&s.PasswordHash,
		&gradeLevel,
		&s.Bio,
		&s.Active,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, student.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}

	s.Email = student.Email(email)
	s.GradeLevel = student.GradeLevel(gradeLevel)
	return &s, nil
}

func (r *StudentRepository) scanStudents(rows pgx.Rows) ([]*student.Student, error) {
	students := make([]*student.Student, 0)

	for rows.Next() {
		var s student.Student
		var email, gradeLevel string

		err := rows.Scan(
			&s.ID,
			&email,
			&s.DisplayName,
			&s.PasswordHash,
			&gradeLevel,
			&s.Bio,
			&s.Active,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student row: %w", err)
		}

		s.Email = student.Email(email)
		s.GradeLevel = student.GradeLevel(gradeLevel)
		students = append(students, &s)
	}

	return students, rows.Err()
}
