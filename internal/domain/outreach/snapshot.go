// internal/domain/outreach/snapshot.go
package outreach

import (
	"fmt"
	"math"
	"time"
)

var ErrInvalidSnapshot = fmt.Errorf("invalid progress snapshot")

// Schedule holds the milestone due dates of one enrollment. Zero values mean
// "not scheduled".
type Schedule struct {
	SkillsReview time.Time
	ReviewExams  [MaxUnit]time.Time
	UnitExams    [MaxUnit]time.Time
	Final        time.Time
	LastTry      time.Time
}

// ReviewExamDue returns the due date of the review exam for unit 1..4.
func (s Schedule) ReviewExamDue(unit int) time.Time {
	if unit < 1 || unit > MaxUnit {
		return time.Time{}
	}
	return s.ReviewExams[unit-1]
}

func (s Schedule) UnitExamDue(unit int) time.Time {
	if unit < 1 || unit > MaxUnit {
		return time.Time{}
	}
	return s.UnitExams[unit-1]
}

// ProgressSnapshot is one student's status in one course, loaded fresh for each
// evaluation run.
type ProgressSnapshot struct {
	StudentID  string
	CourseID   string
	CourseName string
	FirstName  string
	Email      string

	Attempts    map[MilestoneKind]int
	LastAttempt map[MilestoneKind]time.Time

	DaysSinceLastActivity int
	DaysSinceLastMessage  int // weekdays

	Schedule Schedule

	InPerson          bool
	PaceTotal         int
	CourseIndex       int // zero-based position in the pace
	Completed         bool
	PassedReviewExam4 bool
	LastTryEligible   bool

	CurrentMilestone MilestoneKind
	Urgency          int
	Blocked          bool
}

// AttemptsOn returns the attempt count for k, zero when unknown.
func (s *ProgressSnapshot) AttemptsOn(k MilestoneKind) int {
	return s.Attempts[k]
}

// DaysSinceLastTry counts calendar days since the last attempt on k. Without a
// recorded attempt the gap is treated as unbounded.
func (s *ProgressSnapshot) DaysSinceLastTry(k MilestoneKind, today time.Time) int {
	last, ok := s.LastAttempt[k]
	if !ok || last.IsZero() {
		return math.MaxInt32
	}
	return DaysBetween(last, today)
}

// IsLastCourse reports whether this course is the last one in the student's pace.
func (s *ProgressSnapshot) IsLastCourse() bool {
	return s.CourseIndex == s.PaceTotal-1
}

// CurrentEnrollments keeps one snapshot per student: the first course in pace
// order that is not completed. Students with every course completed drop out.
// Snapshots without a student ID pass through so validation can reject them.
func CurrentEnrollments(snaps []*ProgressSnapshot) []*ProgressSnapshot {
	pos := make(map[string]int, len(snaps))
	out := make([]*ProgressSnapshot, 0, len(snaps))
	for _, s := range snaps {
		if s == nil || s.StudentID == "" {
			out = append(out, s)
			continue
		}
		if s.Completed {
			continue
		}
		i, ok := pos[s.StudentID]
		if !ok {
			pos[s.StudentID] = len(out)
			out = append(out, s)
			continue
		}
		if s.CourseIndex < out[i].CourseIndex {
			out[i] = s
		}
	}
	return out
}

// Validate rejects snapshots that no real enrollment can produce.
func (s *ProgressSnapshot) Validate() error {
	if s.StudentID == "" || s.CourseID == "" {
		return fmt.Errorf("%w: missing student or course id", ErrInvalidSnapshot)
	}
	for k, n := range s.Attempts {
		if n < 0 {
			return fmt.Errorf("%w: %s has %d attempts for %s", ErrInvalidSnapshot, s.StudentID, n, k)
		}
	}
	if s.DaysSinceLastActivity < 0 || s.DaysSinceLastMessage < 0 {
		return fmt.Errorf("%w: %s has negative day counters", ErrInvalidSnapshot, s.StudentID)
	}
	if s.PaceTotal < 1 {
		return fmt.Errorf("%w: %s has pace %d", ErrInvalidSnapshot, s.StudentID, s.PaceTotal)
	}
	if s.CourseIndex < 0 || s.CourseIndex >= s.PaceTotal {
		return fmt.Errorf("%w: %s course index %d outside pace %d", ErrInvalidSnapshot, s.StudentID, s.CourseIndex, s.PaceTotal)
	}
	// The last-try window opens after the final's due date.
	if !s.Schedule.LastTry.IsZero() && s.Schedule.Final.IsZero() {
		return fmt.Errorf("%w: %s has a last-try date without a final date", ErrInvalidSnapshot, s.StudentID)
	}
	return nil
}
