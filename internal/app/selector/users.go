package selector

import (
	"course_outreach/internal/domain/outreach"
)

// usersExam handles the orientation exam taken before any course content. It
// has no terminal code; once its codes run out the student is only logged.
func (e *Engine) usersExam(in Input) (outreach.DispatchRecord, bool) {
	snap := in.Snapshot
	kind := outreach.UsersExam
	if !quietSinceLastMessage(in) {
		return none()
	}

	attempts := snap.AttemptsOn(kind)
	if attempts == 0 {
		for _, s := range notTriedSlots {
			if in.Ledger.HasNone(kind.Code(s)) {
				return e.emitUsers(in, s)
			}
		}
		e.stuck.Stuck(snap.StudentID, kind, "stuck not having tried User's Exam")
		return none()
	}

	if snap.DaysSinceLastTry(kind, in.Today) < 2 {
		return none()
	}
	for i := range notTriedSlots {
		codes := []outreach.MessageCode{kind.Code(notTriedSlots[i]), kind.Code(fewSlots[i])}
		target := fewSlots[i]
		if attempts >= 4 {
			target = outreach.ExtendedSlot(i)
			codes = append(codes, kind.Code(target))
		}
		if in.Ledger.HasNone(codes...) {
			return e.emitUsers(in, target)
		}
	}
	e.stuck.Stuck(snap.StudentID, kind, "stuck on User's Exam")
	return none()
}

func (e *Engine) emitUsers(in Input, s outreach.Slot) (outreach.DispatchRecord, bool) {
	kind := outreach.UsersExam
	content := withFirstReviewFraming(baseContent(kind, in.Snapshot), in, s)
	// The User's exam is not tied to a course in the pace.
	return outreach.NewDispatchRecord(in.Snapshot, 0, kind, kind.Code(s), "User's Exam",
		TemplateID("us", s), content), true
}

// startOfCourse nudges a student who has not yet opened the course.
func (e *Engine) startOfCourse(in Input) (outreach.DispatchRecord, bool) {
	snap := in.Snapshot
	kind := outreach.StartOfCourse
	if !quietSinceLastMessage(in) {
		return none()
	}
	for _, s := range notTriedSlots {
		if in.Ledger.HasNone(kind.Code(s)) {
			content := withFirstReviewFraming(baseContent(kind, snap), in, s)
			return outreach.NewDispatchRecord(snap, snap.CourseIndex+1, kind, kind.Code(s), "Getting started",
				TemplateID("start", s), content), true
		}
	}
	e.stuck.Stuck(snap.StudentID, kind, "stuck without starting "+courseLabel(snap))
	return none()
}
