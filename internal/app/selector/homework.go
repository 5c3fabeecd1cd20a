package selector

import (
	"fmt"

	"course_outreach/internal/domain/outreach"
)

// homeworkLadder covers every objective homework. Objective 1.1 is the first
// assignment a student meets and keeps a few more of its codes visible.
func homeworkLadder(kind outreach.MilestoneKind) ladder {
	return ladder{
		kind:       kind,
		template:   "hw",
		note:       fmt.Sprintf("homework %d.%d", kind.Unit, kind.Objective),
		branchOpen: inactive,
		slotOpen: func(in Input, s outreach.Slot, _ outreach.Content) bool {
			return s == outreach.SlotStuck || inactive(in)
		},
		silent: homeworkSilent(kind),
		subject: func(in Input, s outreach.Slot) string {
			if s == outreach.SlotStuck {
				return "Stuck on " + courseLabel(in.Snapshot) + " assignment?"
			}
			return "Checking in"
		},
		content: func(in Input, _ outreach.Slot) outreach.Content {
			return baseContent(kind, in.Snapshot)
		},
	}
}

func homeworkSilent(kind outreach.MilestoneKind) func(Input, outreach.Slot) bool {
	if kind == outreach.Homework(1, 1) {
		return func(in Input, s outreach.Slot) bool {
			if slotIn(s, outreach.SlotR02, outreach.SlotR06) {
				return true
			}
			return in.Snapshot.CourseIndex >= 2 && slotIn(s, outreach.SlotR00, outreach.SlotR04, outreach.SlotX00)
		}
	}
	return func(_ Input, s outreach.Slot) bool {
		return slotIn(s, outreach.SlotR00, outreach.SlotR02, outreach.SlotR04, outreach.SlotR06, outreach.SlotX00)
	}
}
