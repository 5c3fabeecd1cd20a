package selector

import (
	"course_outreach/internal/domain/outreach"
)

func skillsReviewLadder() ladder {
	kind := outreach.SkillsReview
	return ladder{
		kind:       kind,
		template:   "sr",
		note:       "Skills Review exam",
		branchOpen: quietSinceLastMessage,
		manyOpen:   quietSinceLastMessage,
		subject: func(_ Input, s outreach.Slot) string {
			if s == outreach.SlotStuck {
				return "Stuck on Skills Review?"
			}
			return "Skills Review"
		},
		content: func(in Input, s outreach.Slot) outreach.Content {
			return withFirstReviewFraming(baseContent(kind, in.Snapshot), in, s)
		},
	}
}

// withFirstReviewFraming adds the first review exam's due date to the 02 and
// 06 messages of the early-course families.
func withFirstReviewFraming(c outreach.Content, in Input, s outreach.Slot) outreach.Content {
	if !slotIn(s, outreach.SlotR02, outreach.SlotR06) {
		return c
	}
	return withDue(c, in.Today, in.Snapshot.Schedule.ReviewExamDue(1))
}
