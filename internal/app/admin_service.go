package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course_outreach/internal/domain/outreach"
	"course_outreach/internal/domain/student"
	idb "course_outreach/internal/infra/database"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrStudentAlreadyPaused = fmt.Errorf("student outreach is already paused")
var ErrStudentAlreadyActive = fmt.Errorf("student outreach is already active")

type AdminService struct {
	outreach        OutreachService
	studentRepo     student.Repository
	adminTelegramID int64
	now             func() time.Time
}

func NewAdminService(svc OutreachService, sr student.Repository, adminID int64) *AdminService {
	return &AdminService{
		outreach:        svc,
		studentRepo:     sr,
		adminTelegramID: adminID,
		now:             time.Now,
	}
}

func (s *AdminService) authorize(performingAdminID int64) error {
	if performingAdminID != s.adminTelegramID {
		return ErrAdminNotAuthorized
	}
	return nil
}

func (s *AdminService) day(date time.Time) time.Time {
	if date.IsZero() {
		return s.now()
	}
	return date
}

// RunNow triggers a live run for date, or for today when date is zero.
func (s *AdminService) RunNow(ctx context.Context, performingAdminID int64, date time.Time) (*RunReport, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.outreach.Run(ctx, s.day(date), false)
}

// DryRun evaluates every enrollment without sending or recording.
func (s *AdminService) DryRun(ctx context.Context, performingAdminID int64, date time.Time) (*RunReport, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.outreach.Run(ctx, s.day(date), true)
}

func (s *AdminService) Preview(ctx context.Context, performingAdminID int64, studentID, courseID string, date time.Time) (*Preview, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.outreach.Preview(ctx, studentID, courseID, s.day(date))
}

func (s *AdminService) ListStuck(ctx context.Context, performingAdminID int64) ([]outreach.LedgerEntry, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.outreach.StuckStudents(ctx)
}

func (s *AdminService) StudentLedger(ctx context.Context, performingAdminID int64, studentID, courseID string) ([]outreach.LedgerEntry, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.outreach.StudentLedger(ctx, studentID, courseID)
}

func (s *AdminService) LatestRun(ctx context.Context, performingAdminID int64) (*outreach.Run, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	return s.outreach.LatestRun(ctx)
}

// PauseStudent excludes a student from every future run.
func (s *AdminService) PauseStudent(ctx context.Context, performingAdminID int64, studentID string) (*student.Student, error) {
	return s.setActive(ctx, performingAdminID, studentID, false)
}

// ResumeStudent includes a paused student in runs again.
func (s *AdminService) ResumeStudent(ctx context.Context, performingAdminID int64, studentID string) (*student.Student, error) {
	return s.setActive(ctx, performingAdminID, studentID, true)
}

func (s *AdminService) setActive(ctx context.Context, performingAdminID int64, studentID string, active bool) (*student.Student, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}

	target, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, idb.ErrStudentNotFound) {
			return nil, idb.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student %s: %w", studentID, err)
	}

	if target.IsActive == active {
		if active {
			return target, ErrStudentAlreadyActive
		}
		return target, ErrStudentAlreadyPaused
	}

	target.IsActive = active
	if err := s.studentRepo.Update(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to update student %s: %w", studentID, err)
	}
	return target, nil
}

// ListPaused returns the students currently excluded from runs.
func (s *AdminService) ListPaused(ctx context.Context, performingAdminID int64) ([]*student.Student, error) {
	if err := s.authorize(performingAdminID); err != nil {
		return nil, err
	}
	students, err := s.studentRepo.ListInactive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list paused students: %w", err)
	}
	return students, nil
}
