package database

import (
	"context"
	"database/sql"
	"fmt"

	"course_outreach/internal/domain/outreach"

	"github.com/lib/pq"
)

type PostgresLedgerRepository struct {
	db *sql.DB
}

func NewPostgresLedgerRepository(db *sql.DB) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{db: db}
}

func (r *PostgresLedgerRepository) ListEntries(ctx context.Context, studentID, courseID string) ([]outreach.LedgerEntry, error) {
	query := `SELECT student_id, course_id, code, sent_on
               FROM sent_messages
               WHERE student_id = $1 AND course_id = $2
               ORDER BY sent_on, code`
	return r.list(ctx, "ledger", query, studentID, courseID)
}

// Record stores one sent code. Recording a code twice is a no-op.
func (r *PostgresLedgerRepository) Record(ctx context.Context, e outreach.LedgerEntry) error {
	query := `INSERT INTO sent_messages (student_id, course_id, code, sent_on)
               VALUES ($1, $2, $3, $4)
               ON CONFLICT (student_id, course_id, code) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, e.StudentID, e.CourseID, string(e.Code), outreach.Day(e.SentOn)); err != nil {
		return fmt.Errorf("error recording sent code %s for %s/%s: %w", e.Code, e.StudentID, e.CourseID, err)
	}
	return nil
}

func (r *PostgresLedgerRepository) ListByCodes(ctx context.Context, codes []outreach.MessageCode) ([]outreach.LedgerEntry, error) {
	if len(codes) == 0 {
		return []outreach.LedgerEntry{}, nil
	}
	raw := make([]string, len(codes))
	for i, c := range codes {
		raw[i] = string(c)
	}
	query := `SELECT student_id, course_id, code, sent_on
               FROM sent_messages
               WHERE code = ANY($1::varchar[])
               ORDER BY sent_on DESC, student_id, code`
	return r.list(ctx, "ledger by codes", query, pq.Array(raw))
}

func (r *PostgresLedgerRepository) list(ctx context.Context, what, query string, args ...any) ([]outreach.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", what, err)
	}
	defer rows.Close()

	entries := make([]outreach.LedgerEntry, 0)
	for rows.Next() {
		var e outreach.LedgerEntry
		var code string
		if err := rows.Scan(&e.StudentID, &e.CourseID, &code, &e.SentOn); err != nil {
			return nil, fmt.Errorf("error scanning %s entry: %w", what, err)
		}
		e.Code = outreach.MessageCode(code)
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}
	return entries, nil
}
