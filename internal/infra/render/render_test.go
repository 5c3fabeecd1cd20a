package render

import (
	"database/sql"
	"testing"
	"time"

	"course_outreach/internal/app"
	"course_outreach/internal/domain/mail"
	"course_outreach/internal/domain/outreach"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var templateSets = map[outreach.Family]string{
	outreach.FamilyHomework:     "hw",
	outreach.FamilyReviewExam:   "re",
	outreach.FamilyUnitExam:     "ue",
	outreach.FamilySkillsReview: "sr",
	outreach.FamilyUsersExam:    "us",
	outreach.FamilyStart:        "start",
	outreach.FamilyFinal:        "fin",
	outreach.FamilyBlocked:      "blok",
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func TestEveryCatalogCodeHasATemplate(t *testing.T) {
	r := newRenderer(t)
	assert.ElementsMatch(t, []string{"blok", "fin", "hw", "re", "sr", "start", "ue", "us"}, r.Sets())

	for _, kind := range outreach.AllMilestones() {
		set, ok := templateSets[kind.Family]
		require.True(t, ok, "no template set for %s", kind.Family)
		for _, code := range outreach.DefaultCatalog.Codes(kind) {
			entry, ok := outreach.DefaultCatalog.Lookup(code)
			require.True(t, ok)
			assert.True(t, r.Has(set+"."+string(entry.Slot)), "missing template for %s", code)
		}
	}
}

func TestRenderBodyHomework(t *testing.T) {
	r := newRenderer(t)
	body, err := r.RenderBody("hw.R00", mail.Letter{
		FirstName: "Ana",
		Code:      "H23Rhw00",
		Content: outreach.Content{
			CourseName:  "Algebra I",
			CourseIndex: 0,
			PaceTotal:   2,
			Unit:        2,
			Objective:   3,
		},
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Hi Ana,")
	assert.Contains(t, body, "Homework 2.3")
	assert.Contains(t, body, "<strong>Algebra I</strong>")
	assert.Contains(t, body, "course 1 of 2 in your pace")
}

func TestRenderBodyDueDate(t *testing.T) {
	r := newRenderer(t)
	due := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	body, err := r.RenderBody("re.R01", mail.Letter{
		FirstName: "Ben",
		Content: outreach.Content{
			CourseName: "Geometry",
			PaceTotal:  1,
			Unit:       1,
			Proximity:  outreach.ProximityNear,
			NearDue:    true,
			DueDate:    due,
			DueDay:     "Friday",
			InPerson:   true,
		},
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Unit 1 Review Exam")
	assert.Contains(t, body, "It is due on Friday, March 15.")
	assert.Contains(t, body, "in-person session")

	body, err = r.RenderBody("re.R01", mail.Letter{
		FirstName: "Ben",
		Content:   outreach.Content{CourseName: "Geometry", PaceTotal: 1, Unit: 1, Proximity: outreach.ProximityToday, DueDate: due, DueDay: "Friday"},
	})
	require.NoError(t, err)
	assert.Contains(t, body, "It is due today.")
}

func TestRenderBodyEscapesStudentData(t *testing.T) {
	r := newRenderer(t)
	body, err := r.RenderBody("start.R00", mail.Letter{
		FirstName: "<script>x</script>",
		Content:   outreach.Content{CourseName: "Pre-Algebra", PaceTotal: 1},
	})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRenderBodyUnknownTemplate(t *testing.T) {
	r := newRenderer(t)
	for _, id := range []string{"", "hw", "hw.", "nope.R00", "hw.L00"} {
		_, err := r.RenderBody(id, mail.Letter{})
		assert.ErrorIs(t, err, ErrTemplateNotFound, id)
	}
}

func TestRenderRunSummary(t *testing.T) {
	r := newRenderer(t)
	run := &outreach.Run{
		ID:         "run-1",
		RunDate:    time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC),
		Evaluated:  5,
		Sent:       2,
		Suppressed: 1,
		Deferred:   1,
		Invalid:    1,
	}
	text, err := r.RenderRunSummary(&app.RunReport{
		Run: run,
		Stuck: []app.StuckStudent{
			{StudentID: "s-7", Milestone: outreach.UsersExam, Note: "stuck on User's Exam"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, text, "Outreach run 2024-03-13")
	assert.Contains(t, text, "Sent: 2")
	assert.Contains(t, text, "Stuck students (1):")
	assert.Contains(t, text, "- s-7 US: stuck on User's Exam")
	assert.NotContains(t, text, "Would dispatch")

	run.DryRun = true
	text, err = r.RenderRunSummary(&app.RunReport{
		Run: run,
		Dispatches: []outreach.DispatchRecord{
			{StudentID: "s-1", CourseID: "c-1", Code: "RE1Rre01", BodyTemplateID: sql.NullString{String: "re.R01", Valid: true}},
			{StudentID: "s-2", CourseID: "c-1", Code: "H11Rhw02"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, text, "(dry run)")
	assert.Contains(t, text, "- s-1 c-1 RE1Rre01\n")
	assert.Contains(t, text, "- s-2 c-1 H11Rhw02 (recorded only)")

	_, err = r.RenderRunSummary(nil)
	assert.Error(t, err)
}
