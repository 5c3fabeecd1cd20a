// Package selector decides which outreach message, if any, a student should
// receive next for one milestone. Every function here is pure: it reads a
// snapshot and a ledger and returns at most one dispatch record.
package selector

import (
	"time"

	"course_outreach/internal/domain/outreach"
)

// StuckLogger receives students who have been sent every code of a family.
type StuckLogger interface {
	Stuck(studentID string, milestone outreach.MilestoneKind, note string)
}

type nopStuckLogger struct{}

func (nopStuckLogger) Stuck(string, outreach.MilestoneKind, string) {}

// Input is everything a selector reads.
type Input struct {
	Snapshot *outreach.ProgressSnapshot
	Ledger   outreach.SentLedger
	Today    time.Time
}

// Engine routes a milestone to its selector.
type Engine struct {
	stuck StuckLogger
}

func NewEngine(stuck StuckLogger) *Engine {
	if stuck == nil {
		stuck = nopStuckLogger{}
	}
	return &Engine{stuck: stuck}
}

// Next picks the selector for the snapshot's current state: the blocked
// selector for blocked students, otherwise the current milestone's.
func (e *Engine) Next(in Input) (outreach.DispatchRecord, bool) {
	if in.Snapshot == nil {
		return outreach.DispatchRecord{}, false
	}
	if in.Snapshot.Blocked {
		return e.Select(outreach.Blocked, in)
	}
	return e.Select(in.Snapshot.CurrentMilestone, in)
}

// Select evaluates one milestone. The second result is false when nothing
// should be dispatched.
func (e *Engine) Select(kind outreach.MilestoneKind, in Input) (outreach.DispatchRecord, bool) {
	if in.Snapshot == nil || !kind.Valid() {
		return outreach.DispatchRecord{}, false
	}
	switch kind.Family {
	case outreach.FamilyHomework:
		return e.climb(homeworkLadder(kind), in)
	case outreach.FamilyReviewExam:
		return e.climb(reviewExamLadder(kind), in)
	case outreach.FamilyUnitExam:
		return e.climb(unitExamLadder(kind), in)
	case outreach.FamilySkillsReview:
		return e.climb(skillsReviewLadder(), in)
	case outreach.FamilyUsersExam:
		return e.usersExam(in)
	case outreach.FamilyStart:
		return e.startOfCourse(in)
	case outreach.FamilyFinal:
		return e.final(in)
	case outreach.FamilyBlocked:
		return e.blocked(in)
	}
	return outreach.DispatchRecord{}, false
}

func none() (outreach.DispatchRecord, bool) {
	return outreach.DispatchRecord{}, false
}

// TemplateID names the body template of a slot within a template set.
func TemplateID(set string, slot outreach.Slot) string {
	return set + "." + string(slot)
}

// baseContent copies the presentational fields every family passes through.
func baseContent(kind outreach.MilestoneKind, snap *outreach.ProgressSnapshot) outreach.Content {
	return outreach.Content{
		CourseName:        courseLabel(snap),
		CourseIndex:       snap.CourseIndex,
		PaceTotal:         snap.PaceTotal,
		InPerson:          snap.InPerson,
		Unit:              kind.Unit,
		Objective:         kind.Objective,
		LastCourse:        snap.IsLastCourse(),
		PassedReviewExam4: snap.PassedReviewExam4,
	}
}

func courseLabel(snap *outreach.ProgressSnapshot) string {
	if snap.CourseName != "" {
		return snap.CourseName
	}
	return snap.CourseID
}

// withDue adds the due-date callout fields for one due date.
func withDue(c outreach.Content, today, due time.Time) outreach.Content {
	if due.IsZero() {
		return c
	}
	c.DueDate = due
	c.DueDay = outreach.DueDayName(today, due)
	c.NearDue = outreach.NearDue(today, due)
	c.Proximity = outreach.ProximityTo(today, due)
	return c
}
