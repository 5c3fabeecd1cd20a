package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"course_outreach/internal/domain/outreach"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validDate(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func TestAssembleSnapshots(t *testing.T) {
	today := date(2024, time.March, 13) // Wednesday
	enrollments := []enrollmentRow{
		{
			StudentID:        "s-1",
			CourseID:         "alg1",
			FirstName:        "Ana",
			Email:            "ana@example.org",
			EnrolledOn:       date(2024, time.January, 8),
			PaceTotal:        2,
			CourseIndex:      1,
			CurrentMilestone: "RE2",
			Urgency:          3,
			LastActivityOn:   validDate(date(2024, time.March, 8)),
			ReviewExamDue:    [outreach.MaxUnit]sql.NullTime{1: validDate(date(2024, time.March, 15))},
			FinalDue:         validDate(date(2024, time.May, 1)),
		},
		{
			StudentID:        "s-2",
			CourseID:         "geo",
			FirstName:        "Ben",
			EnrolledOn:       date(2024, time.March, 11),
			PaceTotal:        1,
			Completed:        true,
			CurrentMilestone: "bogus",
		},
	}
	attempts := []attemptRow{
		{StudentID: "s-1", CourseID: "alg1", Milestone: "RE2", Attempts: 2, LastAttemptOn: validDate(date(2024, time.March, 10))},
		{StudentID: "s-1", CourseID: "alg1", Milestone: "H11", Attempts: 1},
		{StudentID: "s-1", CourseID: "other", Milestone: "H12", Attempts: 5},
		{StudentID: "s-2", CourseID: "geo", Milestone: "nope", Attempts: 5},
	}
	lastSent := map[string]time.Time{"s-1": date(2024, time.March, 6)}
	names := map[string]string{"alg1": "Algebra I"}

	snaps := assembleSnapshots(enrollments, attempts, lastSent, names, today)
	require.Len(t, snaps, 2)

	a := snaps[0]
	assert.Equal(t, "Algebra I", a.CourseName)
	assert.Equal(t, outreach.ReviewExam(2), a.CurrentMilestone)
	assert.Equal(t, 5, a.DaysSinceLastActivity)
	assert.Equal(t, 5, a.DaysSinceLastMessage) // Wed 6 through Tue 12
	assert.Equal(t, 2, a.AttemptsOn(outreach.ReviewExam(2)))
	assert.Equal(t, 1, a.AttemptsOn(outreach.Homework(1, 1)))
	assert.Equal(t, 0, a.AttemptsOn(outreach.Homework(1, 2)))
	assert.Equal(t, 3, a.DaysSinceLastTry(outreach.ReviewExam(2), today))
	assert.Equal(t, date(2024, time.March, 15), a.Schedule.ReviewExamDue(2))
	assert.True(t, a.Schedule.ReviewExamDue(1).IsZero())
	assert.True(t, a.IsLastCourse())
	assert.False(t, a.Completed)
	assert.NoError(t, a.Validate())

	b := snaps[1]
	assert.Equal(t, "", b.CourseName)
	assert.False(t, b.CurrentMilestone.Valid())
	assert.Equal(t, 2, b.DaysSinceLastActivity) // falls back to the enrollment date
	assert.Equal(t, outreach.NoMessagesWeekdays, b.DaysSinceLastMessage)
	assert.Empty(t, b.Attempts)
	assert.True(t, b.Completed)
}

type countingCourseNames struct {
	calls int
	err   error
}

func (c *countingCourseNames) CourseName(_ context.Context, courseID string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "Course " + courseID, nil
}

func TestCachedCourseNames(t *testing.T) {
	src := &countingCourseNames{}
	cached := NewCachedCourseNames(src, time.Hour)

	for i := 0; i < 3; i++ {
		name, err := cached.CourseName(context.Background(), "alg1")
		require.NoError(t, err)
		assert.Equal(t, "Course alg1", name)
	}
	assert.Equal(t, 1, src.calls)

	_, err := cached.CourseName(context.Background(), "geo")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCachedCourseNamesDoesNotCacheErrors(t *testing.T) {
	src := &countingCourseNames{err: ErrCourseNotFound}
	cached := NewCachedCourseNames(src, time.Hour)

	_, err := cached.CourseName(context.Background(), "alg1")
	assert.True(t, errors.Is(err, ErrCourseNotFound))

	src.err = nil
	name, err := cached.CourseName(context.Background(), "alg1")
	require.NoError(t, err)
	assert.Equal(t, "Course alg1", name)
	assert.Equal(t, 2, src.calls)
}
