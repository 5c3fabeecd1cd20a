package selector

import (
	"testing"
	"time"

	"course_outreach/internal/domain/outreach"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stuckCall struct {
	studentID string
	milestone outreach.MilestoneKind
	note      string
}

type recordingStuckLogger struct {
	calls []stuckCall
}

func (r *recordingStuckLogger) Stuck(studentID string, milestone outreach.MilestoneKind, note string) {
	r.calls = append(r.calls, stuckCall{studentID, milestone, note})
}

var today = time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC) // a Wednesday

func daysAgo(n int) time.Time { return today.AddDate(0, 0, -n) }

func newSnapshot() *outreach.ProgressSnapshot {
	return &outreach.ProgressSnapshot{
		StudentID:   "830001234",
		CourseID:    "M 117",
		CourseName:  "MATH 117",
		PaceTotal:   3,
		CourseIndex: 0,
		Attempts:    map[outreach.MilestoneKind]int{},
		LastAttempt: map[outreach.MilestoneKind]time.Time{},
	}
}

func input(snap *outreach.ProgressSnapshot, codes ...outreach.MessageCode) Input {
	return Input{Snapshot: snap, Ledger: outreach.NewSentLedger(codes...), Today: today}
}

func TestHomeworkNotTriedFiresFirstCode(t *testing.T) {
	e := NewEngine(nil)
	snap := newSnapshot()
	snap.DaysSinceLastActivity = 5

	rec, ok := e.Select(outreach.Homework(1, 1), input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("H11Rhw00"), rec.Code)
	assert.False(t, rec.Suppressed())
	assert.Equal(t, "Checking in", rec.Subject.String)
	assert.Equal(t, "hw.R00", rec.BodyTemplateID.String)
	assert.Equal(t, 1, rec.CourseSlot)

	rec, ok = e.Select(outreach.Homework(1, 2), input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("H12Rhw00"), rec.Code)
	assert.True(t, rec.Suppressed(), "H12Rhw00 only occupies the ledger")
	assert.False(t, rec.Subject.Valid)
}

func TestHomeworkOneOneSilentInLaterCourses(t *testing.T) {
	e := NewEngine(nil)
	snap := newSnapshot()
	snap.DaysSinceLastActivity = 5
	snap.CourseIndex = 2

	rec, ok := e.Select(outreach.Homework(1, 1), input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("H11Rhw00"), rec.Code)
	assert.True(t, rec.Suppressed())
	assert.Equal(t, 3, rec.CourseSlot)
}

func TestFewFailuresWaitsAfterFreshAttempt(t *testing.T) {
	e := NewEngine(nil)
	snap := newSnapshot()
	kind := outreach.Homework(2, 2)
	snap.Attempts[kind] = 2
	snap.LastAttempt[kind] = daysAgo(1)
	snap.DaysSinceLastActivity = 10

	_, ok := e.Select(kind, input(snap))
	assert.False(t, ok)

	snap.LastAttempt[kind] = daysAgo(2)
	rec, ok := e.Select(kind, input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("H22Rhw04"), rec.Code)
	assert.True(t, rec.Suppressed())
}

func TestManyFailuresFallsToTerminalCode(t *testing.T) {
	e := NewEngine(nil)
	snap := newSnapshot()
	kind := outreach.ReviewExam(3)
	snap.Attempts[kind] = 5
	snap.DaysSinceLastActivity = 10

	rec, ok := e.Select(kind, input(snap, "RE3Xre00", "RE3Xre01", "RE3Xre02", "RE3Xre03"))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("RE3Rre99"), rec.Code)
	assert.Equal(t, "Stuck on Unit 3 Review Exam?", rec.Subject.String)
	assert.Equal(t, "re.R99", rec.BodyTemplateID.String)
}

func TestManyFailuresSecondSlotDependsOnLastTry(t *testing.T) {
	e := NewEngine(nil)
	snap := newSnapshot()
	kind := outreach.Homework(3, 3)
	snap.Attempts[kind] = 4
	snap.DaysSinceLastActivity = 6

	snap.LastAttempt[kind] = daysAgo(3)
	rec, ok := e.Select(kind, input(snap, "H33Xhw00"))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("H33Xhw01"), rec.Code)

	snap.LastAttempt[kind] = daysAgo(2)
	rec, ok = e.Select(kind, input(snap, "H33Xhw00"))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("H33Xhw02"), rec.Code)

	rec, ok = e.Select(kind, input(snap, "H33Xhw00", "H33Xhw02"))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("H33Xhw03"), rec.Code)
}

func TestEscalationNeverRepeatsACode(t *testing.T) {
	logger := &recordingStuckLogger{}
	e := NewEngine(logger)
	snap := newSnapshot()
	snap.DaysSinceLastActivity = 8
	kind := outreach.Homework(1, 1)

	var sent []outreach.MessageCode
	for i := 0; i < 10; i++ {
		rec, ok := e.Select(kind, input(snap, sent...))
		if !ok {
			break
		}
		assert.NotContains(t, sent, rec.Code)
		sent = append(sent, rec.Code)
	}

	assert.Equal(t, []outreach.MessageCode{"H11Rhw00", "H11Rhw01", "H11Rhw02", "H11Rhw03", "H11Rhw99"}, sent)
	require.Len(t, logger.calls, 1)
	assert.Equal(t, kind, logger.calls[0].milestone)
	assert.Equal(t, snap.StudentID, logger.calls[0].studentID)
}

func TestFewFailuresMonotonicEscalation(t *testing.T) {
	e := NewEngine(nil)
	snap := newSnapshot()
	kind := outreach.UnitExam(1)
	snap.Attempts[kind] = 1
	snap.LastAttempt[kind] = daysAgo(4)
	snap.DaysSinceLastActivity = 4

	cases := []struct {
		ledger []outreach.MessageCode
		want   outreach.MessageCode
	}{
		{nil, "UE1Rue04"},
		{[]outreach.MessageCode{"UE1Rue04"}, "UE1Rue05"},
		// A code from the Not-Tried branch closes the paired slot too.
		{[]outreach.MessageCode{"UE1Rue00", "UE1Rue01"}, "UE1Rue06"},
		{[]outreach.MessageCode{"UE1Rue04", "UE1Rue05", "UE1Rue06"}, "UE1Rue07"},
		{[]outreach.MessageCode{"UE1Rue04", "UE1Rue05", "UE1Rue06", "UE1Rue07"}, "UE1Rue99"},
	}
	for _, tc := range cases {
		rec, ok := e.Select(kind, input(snap, tc.ledger...))
		require.True(t, ok, tc.want)
		assert.Equal(t, tc.want, rec.Code)
	}

	_, ok := e.Select(kind, input(snap, "UE1Rue04", "UE1Rue05", "UE1Rue06", "UE1Rue07", "UE1Rue99"))
	assert.False(t, ok)
}

func TestTerminalCodeNeedsInactivity(t *testing.T) {
	logger := &recordingStuckLogger{}
	e := NewEngine(logger)
	snap := newSnapshot()
	kind := outreach.Homework(4, 1)
	snap.Attempts[kind] = 6
	snap.DaysSinceLastActivity = 2

	_, ok := e.Select(kind, input(snap, "H41Xhw00", "H41Xhw01", "H41Rhw03"))
	assert.False(t, ok)
	assert.Empty(t, logger.calls)
}

func TestReviewExamDueDateGuard(t *testing.T) {
	e := NewEngine(nil)
	kind := outreach.ReviewExam(2)
	snap := newSnapshot()
	snap.Attempts[kind] = 4
	snap.LastAttempt[kind] = daysAgo(5)
	snap.DaysSinceLastActivity = 1 // working actively
	ledger := []outreach.MessageCode{"RE2Xre00"}

	snap.Schedule.ReviewExams[1] = today
	rec, ok := e.Select(kind, input(snap, ledger...))
	require.True(t, ok, "due today opens the guard")
	assert.Equal(t, outreach.MessageCode("RE2Xre01"), rec.Code)
	assert.Equal(t, "today", rec.Content.DueDay)
	assert.True(t, rec.Content.NearDue)

	snap.Schedule.ReviewExams[1] = today.AddDate(0, 0, 3)
	rec, ok = e.Select(kind, input(snap, ledger...))
	require.True(t, ok)
	assert.Equal(t, "Saturday", rec.Content.DueDay)

	snap.Schedule.ReviewExams[1] = today.AddDate(0, 0, 4)
	_, ok = e.Select(kind, input(snap, ledger...))
	assert.False(t, ok, "four days out is outside the window")

	snap.Schedule.ReviewExams[1] = today.AddDate(0, 0, -1)
	_, ok = e.Select(kind, input(snap, ledger...))
	assert.False(t, ok, "passed due date closes the guard")

	snap.DaysSinceLastActivity = 4
	rec, ok = e.Select(kind, input(snap, ledger...))
	require.True(t, ok, "inactivity alone opens the guard")
	assert.Equal(t, outreach.ProximityPassed, rec.Content.Proximity)
}

func TestReviewExamUngatedSlotsIgnoreActivity(t *testing.T) {
	e := NewEngine(nil)
	kind := outreach.ReviewExam(1)
	snap := newSnapshot()
	snap.Attempts[kind] = 7
	snap.DaysSinceLastActivity = 0

	rec, ok := e.Select(kind, input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("RE1Xre00"), rec.Code)
	assert.False(t, rec.Suppressed())
}

func TestUnitExamWithoutDueDateUsesActivityOnly(t *testing.T) {
	e := NewEngine(nil)
	kind := outreach.UnitExam(4)
	snap := newSnapshot()
	snap.Attempts[kind] = 4
	snap.DaysSinceLastActivity = 1

	_, ok := e.Select(kind, input(snap, "UE4Xue00"))
	assert.False(t, ok)
}

func TestSkillsReviewGatedByLastMessage(t *testing.T) {
	e := NewEngine(nil)
	snap := newSnapshot()
	snap.DaysSinceLastActivity = 0
	snap.DaysSinceLastMessage = 3

	_, ok := e.Select(outreach.SkillsReview, input(snap))
	assert.False(t, ok)

	snap.DaysSinceLastMessage = 4
	rec, ok := e.Select(outreach.SkillsReview, input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("SKLRsr00"), rec.Code)
	assert.Equal(t, "Skills Review", rec.Subject.String)
}

func TestSkillsReviewProximityFraming(t *testing.T) {
	e := NewEngine(nil)
	snap := newSnapshot()
	snap.DaysSinceLastMessage = 5
	snap.Schedule.ReviewExams[0] = today.AddDate(0, 0, 2)

	rec, ok := e.Select(outreach.SkillsReview, input(snap, "SKLRsr00", "SKLRsr01"))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("SKLRsr02"), rec.Code)
	assert.Equal(t, outreach.ProximityNear, rec.Content.Proximity)
	assert.False(t, rec.Suppressed())

	rec, ok = e.Select(outreach.SkillsReview, input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.ProximityNone, rec.Content.Proximity, "only 02 and 06 carry the framing")
}

func TestSkillsReviewStuckOnlyWhenInactive(t *testing.T) {
	logger := &recordingStuckLogger{}
	e := NewEngine(logger)
	snap := newSnapshot()
	snap.DaysSinceLastMessage = 5
	snap.DaysSinceLastActivity = 5
	all := []outreach.MessageCode{"SKLRsr00", "SKLRsr01", "SKLRsr02", "SKLRsr03"}

	rec, ok := e.Select(outreach.SkillsReview, input(snap, all...))
	require.True(t, ok)
	assert.Equal(t, "Stuck on Skills Review?", rec.Subject.String)

	_, ok = e.Select(outreach.SkillsReview, input(snap, append(all, "SKLRsr99")...))
	assert.False(t, ok)
	assert.Len(t, logger.calls, 1)
}

func TestUsersExam(t *testing.T) {
	logger := &recordingStuckLogger{}
	e := NewEngine(logger)
	snap := newSnapshot()
	snap.CourseIndex = 1
	snap.DaysSinceLastMessage = 4

	rec, ok := e.Select(outreach.UsersExam, input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("USRRus00"), rec.Code)
	assert.Equal(t, 0, rec.CourseSlot)
	assert.Equal(t, "User's Exam", rec.Subject.String)

	_, ok = e.Select(outreach.UsersExam, input(snap, "USRRus00", "USRRus01", "USRRus02", "USRRus03"))
	assert.False(t, ok)
	require.Len(t, logger.calls, 1)
	assert.Contains(t, logger.calls[0].note, "not having tried")

	snap.Attempts[outreach.UsersExam] = 2
	snap.LastAttempt[outreach.UsersExam] = daysAgo(3)
	rec, ok = e.Select(outreach.UsersExam, input(snap, "USRRus04"))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("USRRus05"), rec.Code)

	snap.Attempts[outreach.UsersExam] = 4
	rec, ok = e.Select(outreach.UsersExam, input(snap, "USRRus04"))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("USRXus01"), rec.Code)

	snap.LastAttempt[outreach.UsersExam] = daysAgo(1)
	_, ok = e.Select(outreach.UsersExam, input(snap))
	assert.False(t, ok)
}

func TestStartOfCourse(t *testing.T) {
	logger := &recordingStuckLogger{}
	e := NewEngine(logger)
	snap := newSnapshot()
	snap.DaysSinceLastMessage = 10

	rec, ok := e.Select(outreach.StartOfCourse, input(snap, "STRTst00"))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("STRTst01"), rec.Code)
	assert.Equal(t, "start.R01", rec.BodyTemplateID.String)

	_, ok = e.Select(outreach.StartOfCourse, input(snap, "STRTst00", "STRTst01", "STRTst02", "STRTst03"))
	assert.False(t, ok)
	assert.Len(t, logger.calls, 1)
}

func TestFinalPastLastTryIsBlocked(t *testing.T) {
	e := NewEngine(nil)
	snap := newSnapshot()
	snap.Attempts[outreach.Final] = 1
	snap.LastTryEligible = true
	snap.Schedule.Final = daysAgo(5)
	snap.Schedule.LastTry = daysAgo(1)

	rec, ok := e.Select(outreach.Final, input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("BLOKwd00"), rec.Code)
	assert.Equal(t, outreach.Blocked, rec.Milestone)
	assert.Equal(t, "Locked out of course", rec.Subject.String)
}

func TestFinalLastTryWindow(t *testing.T) {
	e := NewEngine(nil)
	snap := newSnapshot()
	snap.LastTryEligible = true
	snap.Schedule.Final = daysAgo(1)
	snap.Schedule.LastTry = today

	rec, ok := e.Select(outreach.Final, input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("LASTfe00"), rec.Code)
	assert.Equal(t, "Final exam additional try", rec.Subject.String)
	assert.Equal(t, "today", rec.Content.DueDay)

	_, ok = e.Select(outreach.Final, input(snap, "LASTfe00"))
	assert.False(t, ok)

	snap.Attempts[outreach.Final] = 2
	rec, ok = e.Select(outreach.Final, input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("LASTfe01"), rec.Code)

	_, ok = e.Select(outreach.Final, input(snap, "LASTfe00"))
	assert.False(t, ok)

	snap.LastTryEligible = false
	rec, ok = e.Select(outreach.Final, input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("BLOKwd00"), rec.Code)
}

func TestFinalOnTimeTiers(t *testing.T) {
	e := NewEngine(nil)
	snap := newSnapshot()
	snap.Schedule.Final = today.AddDate(0, 0, 6)
	snap.DaysSinceLastActivity = 3

	rec, ok := e.Select(outreach.Final, input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("FINRfe00"), rec.Code)
	assert.Equal(t, "Course deadline", rec.Subject.String)

	snap.Attempts[outreach.Final] = 2
	rec, ok = e.Select(outreach.Final, input(snap, "FINRfe00", "FINRfe01"))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("FINRfe06"), rec.Code)

	snap.Attempts[outreach.Final] = 4
	rec, ok = e.Select(outreach.Final, input(snap, "FINXfe00"))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("FINXfe01"), rec.Code)

	snap.DaysSinceLastActivity = 2
	_, ok = e.Select(outreach.Final, input(snap, "FINXfe00"))
	assert.False(t, ok, "X01 waits for a quiet student")
}

func TestFinalExhaustedTierResendsWithoutBody(t *testing.T) {
	e := NewEngine(nil)
	snap := newSnapshot()
	snap.Schedule.Final = today
	snap.DaysSinceLastActivity = 9

	rec, ok := e.Select(outreach.Final, input(snap, "FINRfe00", "FINRfe01", "FINRfe02"))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("FINRfe02"), rec.Code)
	assert.Equal(t, "Final not passed", rec.Subject.String)
	assert.True(t, rec.Suppressed())
}

func TestBlockedIsIdempotent(t *testing.T) {
	e := NewEngine(nil)
	snap := newSnapshot()
	snap.Blocked = true
	snap.CurrentMilestone = outreach.Homework(2, 1)
	snap.CourseIndex = 2
	snap.PassedReviewExam4 = true

	rec, ok := e.Next(input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("BLOKwd00"), rec.Code)
	assert.False(t, rec.Suppressed())
	assert.True(t, rec.Content.LastCourse)
	assert.True(t, rec.Content.PassedReviewExam4)

	again, ok := e.Next(input(snap, "BLOKwd00"))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("BLOKwd00"), again.Code)
	assert.True(t, again.Suppressed())
	assert.Equal(t, "Blocked", again.Subject.String)
}

func TestNextRoutesCurrentMilestone(t *testing.T) {
	e := NewEngine(nil)
	snap := newSnapshot()
	snap.CurrentMilestone = outreach.ReviewExam(4)
	snap.DaysSinceLastActivity = 5

	rec, ok := e.Next(input(snap))
	require.True(t, ok)
	assert.Equal(t, outreach.MessageCode("RE4Rre00"), rec.Code)

	_, ok = e.Next(Input{Today: today})
	assert.False(t, ok)

	_, ok = e.Select(outreach.MilestoneKind{Family: "??"}, input(snap))
	assert.False(t, ok)
}
