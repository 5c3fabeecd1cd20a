// internal/domain/outreach/repository.go
package outreach

import (
	"context"
	"time"
)

// SnapshotSource loads progress snapshots for active enrollments.
type SnapshotSource interface {
	ListActiveSnapshots(ctx context.Context, today time.Time) ([]*ProgressSnapshot, error)
	GetSnapshot(ctx context.Context, studentID, courseID string, today time.Time) (*ProgressSnapshot, error)
}

// LedgerRepository is the durable source of truth for sent codes.
type LedgerRepository interface {
	ListEntries(ctx context.Context, studentID, courseID string) ([]LedgerEntry, error)
	// Record must be durable before it returns.
	Record(ctx context.Context, entry LedgerEntry) error
	ListByCodes(ctx context.Context, codes []MessageCode) ([]LedgerEntry, error)
}

// CourseNames resolves course identifiers to display names.
type CourseNames interface {
	CourseName(ctx context.Context, courseID string) (string, error)
}
