package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"course_outreach/internal/domain/student"
)

var ErrStudentNotFound = fmt.Errorf("student not found")

type PostgresStudentRepository struct {
	db *sql.DB
}

func NewPostgresStudentRepository(db *sql.DB) *PostgresStudentRepository {
	return &PostgresStudentRepository{db: db}
}

func (r *PostgresStudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	query := `SELECT id, first_name, last_name, email, is_active, created_at, updated_at
               FROM students WHERE id = $1`
	s := &student.Student{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.FirstName, &s.LastName, &s.Email, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error getting student by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresStudentRepository) Update(ctx context.Context, s *student.Student) error {
	query := `UPDATE students
               SET first_name = $1, last_name = $2, email = $3, is_active = $4, updated_at = NOW()
               WHERE id = $5
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, s.FirstName, s.LastName, s.Email, s.IsActive, s.ID).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrStudentNotFound
		}
		return fmt.Errorf("error updating student: %w", err)
	}
	return nil
}

func (r *PostgresStudentRepository) ListInactive(ctx context.Context) ([]*student.Student, error) {
	query := `SELECT id, first_name, last_name, email, is_active, created_at, updated_at
               FROM students WHERE is_active = FALSE ORDER BY first_name, last_name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing paused students: %w", err)
	}
	defer rows.Close()

	students := make([]*student.Student, 0)
	for rows.Next() {
		s := &student.Student{}
		if err := rows.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Email, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning paused student: %w", err)
		}
		students = append(students, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating paused students: %w", err)
	}
	return students, nil
}
