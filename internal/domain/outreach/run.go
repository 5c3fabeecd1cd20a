// internal/domain/outreach/run.go
package outreach

import (
	"context"
	"database/sql"
	"time"
)

// Run is one evaluation pass over all active enrollments.
// Corresponds to the 'outreach_runs' table.
type Run struct {
	ID         string // uuid
	RunDate    time.Time
	DryRun     bool
	Evaluated  int
	Sent       int
	Suppressed int
	Deferred   int // held back by cadence
	Failed     int
	Invalid    int
	StartedAt  time.Time
	FinishedAt sql.NullTime
}

// RunRepository persists run summaries.
type RunRepository interface {
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	GetLatestRun(ctx context.Context) (*Run, error)
}
