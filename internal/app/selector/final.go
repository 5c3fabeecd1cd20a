package selector

import (
	"course_outreach/internal/domain/outreach"
)

const (
	subjectDeadline   = "Course deadline"
	subjectNotPassed  = "Final not passed"
	subjectLastTry    = "Final exam additional try"
	subjectLockedOut  = "Locked out of course"
	subjectBlockedDup = "Blocked"
)

// final picks its branch from the calendar rather than from attempts: past
// the final's due date only the last-try codes or the blocked notice remain.
func (e *Engine) final(in Input) (outreach.DispatchRecord, bool) {
	snap := in.Snapshot
	kind := outreach.Final
	today := outreach.Day(in.Today)
	sched := snap.Schedule
	tries := snap.AttemptsOn(kind)

	if !sched.Final.IsZero() && today.After(outreach.Day(sched.Final)) {
		if !snap.LastTryEligible || today.After(outreach.Day(sched.LastTry)) {
			return e.blocked(in)
		}
		content := withDue(baseContent(kind, snap), in.Today, sched.LastTry)
		switch {
		case tries == 0 && in.Ledger.HasNone(kind.Code(outreach.SlotLastTryNotTried)):
			return e.finalRecord(in, outreach.SlotLastTryNotTried, subjectLastTry, content), true
		case tries > 0 && in.Ledger.HasNone(kind.Code(outreach.SlotLastTryNotTried), kind.Code(outreach.SlotLastTryTried)):
			return e.finalRecord(in, outreach.SlotLastTryTried, subjectLastTry, content), true
		}
		return none()
	}

	content := withDue(baseContent(kind, snap), in.Today, sched.Final)
	var steps []finalStep
	switch {
	case tries >= 4:
		steps = finalManySteps
	case tries > 0:
		steps = finalFewSteps
	default:
		steps = finalNotTriedSteps
	}
	for _, st := range steps {
		if !in.Ledger.HasNone(codesOf(kind, st.seen)...) {
			continue
		}
		if slotIn(st.fire, outreach.SlotR01, outreach.SlotR05, outreach.SlotX01) && snap.DaysSinceLastActivity <= 2 {
			return none()
		}
		return e.finalRecord(in, st.fire, subjectDeadline, content), true
	}

	// Every code of the tier is out: re-record the last one without a body.
	last := steps[len(steps)-1].fire
	rec := outreach.NewDispatchRecord(snap, snap.CourseIndex+1, kind, kind.Code(last), subjectNotPassed, "", content)
	return rec, true
}

type finalStep struct {
	seen []outreach.Slot
	fire outreach.Slot
}

var (
	finalNotTriedSteps = []finalStep{
		{seen: []outreach.Slot{outreach.SlotR00}, fire: outreach.SlotR00},
		{seen: []outreach.Slot{outreach.SlotR01}, fire: outreach.SlotR01},
		{seen: []outreach.Slot{outreach.SlotR02}, fire: outreach.SlotR02},
	}
	finalFewSteps = []finalStep{
		{seen: []outreach.Slot{outreach.SlotR00, outreach.SlotR04}, fire: outreach.SlotR04},
		{seen: []outreach.Slot{outreach.SlotR01, outreach.SlotR05}, fire: outreach.SlotR05},
		{seen: []outreach.Slot{outreach.SlotR02, outreach.SlotR06}, fire: outreach.SlotR06},
	}
	finalManySteps = []finalStep{
		{seen: []outreach.Slot{outreach.SlotR00, outreach.SlotR04, outreach.SlotX00}, fire: outreach.SlotX00},
		{seen: []outreach.Slot{outreach.SlotR01, outreach.SlotR05, outreach.SlotX01}, fire: outreach.SlotX01},
		{seen: []outreach.Slot{outreach.SlotR02, outreach.SlotR06, outreach.SlotX02}, fire: outreach.SlotX02},
	}
)

func codesOf(kind outreach.MilestoneKind, slots []outreach.Slot) []outreach.MessageCode {
	out := make([]outreach.MessageCode, len(slots))
	for i, s := range slots {
		out[i] = kind.Code(s)
	}
	return out
}

func (e *Engine) finalRecord(in Input, s outreach.Slot, subject string, c outreach.Content) outreach.DispatchRecord {
	snap := in.Snapshot
	return outreach.NewDispatchRecord(snap, snap.CourseIndex+1, outreach.Final, outreach.Final.Code(s), subject,
		TemplateID("fin", s), c)
}

// blocked tells a locked-out student once; afterwards the same code comes
// back without a body so callers can tell "already told" from "nothing".
func (e *Engine) blocked(in Input) (outreach.DispatchRecord, bool) {
	snap := in.Snapshot
	kind := outreach.Blocked
	code := kind.Code(outreach.SlotBlocked)
	content := baseContent(kind, snap)

	if in.Ledger.HasNone(code) {
		return outreach.NewDispatchRecord(snap, snap.CourseIndex+1, kind, code, subjectLockedOut,
			TemplateID("blok", outreach.SlotBlocked), content), true
	}
	return outreach.NewDispatchRecord(snap, snap.CourseIndex+1, kind, code, subjectBlockedDup, "", content), true
}
