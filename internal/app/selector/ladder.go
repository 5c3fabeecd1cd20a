package selector

import (
	"course_outreach/internal/domain/outreach"
)

// ladder describes one family that follows the shared three-tier escalation:
// Not-Tried, Few-Failures and Many-Failures, then a single terminal code.
type ladder struct {
	kind     outreach.MilestoneKind
	template string
	note     string // appended to the stuck log line

	// branchOpen gates the Not-Tried and Few-Failures branches.
	branchOpen func(in Input) bool
	// manyOpen gates the Many-Failures branch. Nil means always open.
	manyOpen func(in Input) bool
	// slotOpen is checked for every non-silent code before it fires. A closed
	// slot yields nothing; the scan does not move on. It sees the content
	// already built for the slot so due-date checks are made once.
	slotOpen func(in Input, s outreach.Slot, c outreach.Content) bool
	silent   func(in Input, s outreach.Slot) bool
	subject  func(in Input, s outreach.Slot) string
	content  func(in Input, s outreach.Slot) outreach.Content
}

var (
	notTriedSlots = []outreach.Slot{outreach.SlotR00, outreach.SlotR01, outreach.SlotR02, outreach.SlotR03}
	fewSlots      = []outreach.Slot{outreach.SlotR04, outreach.SlotR05, outreach.SlotR06, outreach.SlotR07}
)

func (e *Engine) climb(l ladder, in Input) (outreach.DispatchRecord, bool) {
	attempts := in.Snapshot.AttemptsOn(l.kind)
	switch {
	case attempts >= 4:
		return e.failedMany(l, in)
	case attempts > 0:
		return e.failedFew(l, in)
	}
	return e.notTried(l, in)
}

func (e *Engine) notTried(l ladder, in Input) (outreach.DispatchRecord, bool) {
	if !l.branchOpen(in) {
		return none()
	}
	for _, s := range notTriedSlots {
		if in.Ledger.HasNone(l.kind.Code(s)) {
			return e.emit(l, in, s)
		}
	}
	return e.terminal(l, in)
}

func (e *Engine) failedFew(l ladder, in Input) (outreach.DispatchRecord, bool) {
	if !l.branchOpen(in) || in.Snapshot.DaysSinceLastTry(l.kind, in.Today) < 2 {
		return none()
	}
	for i, s := range fewSlots {
		if in.Ledger.HasNone(l.kind.Code(notTriedSlots[i]), l.kind.Code(s)) {
			return e.emit(l, in, s)
		}
	}
	return e.terminal(l, in)
}

func (e *Engine) failedMany(l ladder, in Input) (outreach.DispatchRecord, bool) {
	if l.manyOpen != nil && !l.manyOpen(in) {
		return none()
	}
	code := l.kind.Code
	switch {
	case in.Ledger.HasNone(code(outreach.SlotR00), code(outreach.SlotR04), code(outreach.SlotX00)):
		return e.emit(l, in, outreach.SlotX00)
	case in.Ledger.HasNone(code(outreach.SlotR01), code(outreach.SlotR05), code(outreach.SlotX01), code(outreach.SlotX02)):
		if in.Snapshot.DaysSinceLastTry(l.kind, in.Today) > 2 {
			return e.emit(l, in, outreach.SlotX01)
		}
		return e.emit(l, in, outreach.SlotX02)
	case in.Ledger.HasNone(code(outreach.SlotR03), code(outreach.SlotR07), code(outreach.SlotX03)):
		return e.emit(l, in, outreach.SlotX03)
	}
	return e.terminal(l, in)
}

// terminal fires the family's stuck code once, and only for a student who has
// been inactive for more than three days.
func (e *Engine) terminal(l ladder, in Input) (outreach.DispatchRecord, bool) {
	if in.Snapshot.DaysSinceLastActivity <= 3 {
		return none()
	}
	if in.Ledger.HasNone(l.kind.Code(outreach.SlotStuck)) {
		return e.emit(l, in, outreach.SlotStuck)
	}
	e.stuck.Stuck(in.Snapshot.StudentID, l.kind, "stuck on "+l.note)
	return none()
}

func (e *Engine) emit(l ladder, in Input, s outreach.Slot) (outreach.DispatchRecord, bool) {
	snap := in.Snapshot
	code := l.kind.Code(s)
	content := l.content(in, s)

	if l.silent != nil && l.silent(in, s) {
		return outreach.NewDispatchRecord(snap, snap.CourseIndex+1, l.kind, code, "", "", content), true
	}
	if l.slotOpen != nil && !l.slotOpen(in, s, content) {
		return none()
	}
	return outreach.NewDispatchRecord(snap, snap.CourseIndex+1, l.kind, code,
		l.subject(in, s), TemplateID(l.template, s), content), true
}

func inactive(in Input) bool {
	return in.Snapshot.DaysSinceLastActivity > 3
}

func quietSinceLastMessage(in Input) bool {
	return in.Snapshot.DaysSinceLastMessage > 3
}

func slotIn(s outreach.Slot, set ...outreach.Slot) bool {
	for _, x := range set {
		if s == x {
			return true
		}
	}
	return false
}
