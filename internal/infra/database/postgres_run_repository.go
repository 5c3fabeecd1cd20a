package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"course_outreach/internal/domain/outreach"
)

var ErrRunNotFound = fmt.Errorf("outreach run not found")

type PostgresRunRepository struct {
	db *sql.DB
}

func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{db: db}
}

func (r *PostgresRunRepository) CreateRun(ctx context.Context, run *outreach.Run) error {
	query := `INSERT INTO outreach_runs (id, run_date, dry_run, started_at)
               VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, run.ID, run.RunDate, run.DryRun, run.StartedAt); err != nil {
		return fmt.Errorf("error creating outreach run: %w", err)
	}
	return nil
}

func (r *PostgresRunRepository) FinishRun(ctx context.Context, run *outreach.Run) error {
	query := `UPDATE outreach_runs
               SET evaluated = $1, sent = $2, suppressed = $3, deferred = $4, failed = $5, invalid = $6, finished_at = $7
               WHERE id = $8`
	res, err := r.db.ExecContext(ctx, query, run.Evaluated, run.Sent, run.Suppressed, run.Deferred, run.Failed, run.Invalid, run.FinishedAt, run.ID)
	if err != nil {
		return fmt.Errorf("error finishing outreach run: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking affected rows for outreach run: %w", err)
	}
	if rowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (r *PostgresRunRepository) GetLatestRun(ctx context.Context) (*outreach.Run, error) {
	query := `SELECT id, run_date, dry_run, evaluated, sent, suppressed, deferred, failed, invalid, started_at, finished_at
               FROM outreach_runs ORDER BY started_at DESC LIMIT 1`
	run := &outreach.Run{}
	err := r.db.QueryRowContext(ctx, query).Scan(&run.ID, &run.RunDate, &run.DryRun, &run.Evaluated, &run.Sent,
		&run.Suppressed, &run.Deferred, &run.Failed, &run.Invalid, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("error getting latest outreach run: %w", err)
	}
	return run, nil
}
