package selector

import (
	"fmt"
	"time"

	"course_outreach/internal/domain/outreach"
)

// Slots of the review and unit exam ladders that may fire for an active
// student when the exam's due date is close.
var dueGatedSlots = []outreach.Slot{outreach.SlotR01, outreach.SlotR05, outreach.SlotX01, outreach.SlotX02}

func reviewExamLadder(kind outreach.MilestoneKind) ladder {
	return examLadder(kind, "re", fmt.Sprintf("Unit %d Review Exam", kind.Unit),
		func(s outreach.Schedule) time.Time { return s.ReviewExamDue(kind.Unit) })
}

func unitExamLadder(kind outreach.MilestoneKind) ladder {
	return examLadder(kind, "ue", fmt.Sprintf("Unit %d Exam", kind.Unit),
		func(s outreach.Schedule) time.Time { return s.UnitExamDue(kind.Unit) })
}

func examLadder(kind outreach.MilestoneKind, template, exam string, due func(outreach.Schedule) time.Time) ladder {
	return ladder{
		kind:       kind,
		template:   template,
		note:       exam,
		branchOpen: inactive,
		slotOpen: func(in Input, s outreach.Slot, c outreach.Content) bool {
			if !slotIn(s, dueGatedSlots...) {
				return true
			}
			// inactive || (today+4 after due && !today after due)
			return inactive(in) || c.NearDue
		},
		silent: func(_ Input, s outreach.Slot) bool {
			return slotIn(s, outreach.SlotR02, outreach.SlotR06)
		},
		subject: func(_ Input, s outreach.Slot) string {
			if s == outreach.SlotStuck {
				return "Stuck on " + exam + "?"
			}
			return "Checking in"
		},
		content: func(in Input, _ outreach.Slot) outreach.Content {
			return withDue(baseContent(kind, in.Snapshot), in.Today, due(in.Snapshot.Schedule))
		},
	}
}
