package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"course_outreach/internal/domain/outreach"

	"github.com/lib/pq"
)

var ErrEnrollmentNotFound = fmt.Errorf("enrollment not found")

// PostgresProgressRepository builds progress snapshots from enrollments,
// milestone attempts and the sent-message ledger.
type PostgresProgressRepository struct {
	db    *sql.DB
	names courseNameSource
}

func NewPostgresProgressRepository(db *sql.DB, names courseNameSource) *PostgresProgressRepository {
	return &PostgresProgressRepository{db: db, names: names}
}

type enrollmentRow struct {
	StudentID         string
	CourseID          string
	FirstName         string
	Email             string
	EnrolledOn        time.Time
	PaceTotal         int
	CourseIndex       int
	Completed         bool
	InPerson          bool
	CurrentMilestone  string
	Urgency           int
	Blocked           bool
	LastActivityOn    sql.NullTime
	PassedReviewExam4 bool
	LastTryEligible   bool
	SkillsReviewDue   sql.NullTime
	ReviewExamDue     [outreach.MaxUnit]sql.NullTime
	UnitExamDue       [outreach.MaxUnit]sql.NullTime
	FinalDue          sql.NullTime
	LastTryDue        sql.NullTime
}

type attemptRow struct {
	StudentID     string
	CourseID      string
	Milestone     string
	Attempts      int
	LastAttemptOn sql.NullTime
}

const enrollmentColumns = `e.student_id, e.course_id, s.first_name, s.email, e.enrolled_on,
               e.pace_total, e.course_index, e.completed, e.in_person, e.current_milestone, e.urgency, e.blocked,
               e.last_activity_on, e.passed_review_exam_4, e.last_try_eligible, e.skills_review_due,
               e.review_exam_1_due, e.review_exam_2_due, e.review_exam_3_due, e.review_exam_4_due,
               e.unit_exam_1_due, e.unit_exam_2_due, e.unit_exam_3_due, e.unit_exam_4_due,
               e.final_due, e.last_try_due`

// An empty filter value matches every row.
const enrollmentFilter = `e.is_active = TRUE AND s.is_active = TRUE
               AND ($1 = '' OR e.student_id = $1) AND ($2 = '' OR e.course_id = $2)`

func (r *PostgresProgressRepository) ListActiveSnapshots(ctx context.Context, today time.Time) ([]*outreach.ProgressSnapshot, error) {
	return r.load(ctx, today, "", "")
}

func (r *PostgresProgressRepository) GetSnapshot(ctx context.Context, studentID, courseID string, today time.Time) (*outreach.ProgressSnapshot, error) {
	if studentID == "" || courseID == "" {
		return nil, ErrEnrollmentNotFound
	}
	snaps, err := r.load(ctx, today, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrEnrollmentNotFound
	}
	return snaps[0], nil
}

func (r *PostgresProgressRepository) load(ctx context.Context, today time.Time, studentID, courseID string) ([]*outreach.ProgressSnapshot, error) {
	enrollments, err := r.listEnrollments(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	if len(enrollments) == 0 {
		return []*outreach.ProgressSnapshot{}, nil
	}
	attempts, err := r.listAttempts(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(enrollments))
	seen := make(map[string]bool, len(enrollments))
	for _, e := range enrollments {
		if !seen[e.StudentID] {
			seen[e.StudentID] = true
			ids = append(ids, e.StudentID)
		}
	}
	lastSent, err := r.lastSentOn(ctx, ids)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	for _, e := range enrollments {
		if _, ok := names[e.CourseID]; ok {
			continue
		}
		name, err := r.names.CourseName(ctx, e.CourseID)
		if err != nil && !errors.Is(err, ErrCourseNotFound) {
			return nil, fmt.Errorf("error resolving course name for %s: %w", e.CourseID, err)
		}
		names[e.CourseID] = name
	}

	return assembleSnapshots(enrollments, attempts, lastSent, names, today), nil
}

func (r *PostgresProgressRepository) listEnrollments(ctx context.Context, studentID, courseID string) ([]enrollmentRow, error) {
	query := `SELECT ` + enrollmentColumns + `
               FROM enrollments e JOIN students s ON s.id = e.student_id
               WHERE ` + enrollmentFilter + `
               ORDER BY e.student_id, e.course_index`

	rows, err := r.db.QueryContext(ctx, query, studentID, courseID)
	if err != nil {
		return nil, fmt.Errorf("error listing active enrollments: %w", err)
	}
	defer rows.Close()

	out := make([]enrollmentRow, 0)
	for rows.Next() {
		var e enrollmentRow
		err := rows.Scan(&e.StudentID, &e.CourseID, &e.FirstName, &e.Email, &e.EnrolledOn,
			&e.PaceTotal, &e.CourseIndex, &e.Completed, &e.InPerson, &e.CurrentMilestone, &e.Urgency, &e.Blocked,
			&e.LastActivityOn, &e.PassedReviewExam4, &e.LastTryEligible, &e.SkillsReviewDue,
			&e.ReviewExamDue[0], &e.ReviewExamDue[1], &e.ReviewExamDue[2], &e.ReviewExamDue[3],
			&e.UnitExamDue[0], &e.UnitExamDue[1], &e.UnitExamDue[2], &e.UnitExamDue[3],
			&e.FinalDue, &e.LastTryDue)
		if err != nil {
			return nil, fmt.Errorf("error scanning enrollment: %w", err)
		}
		out = append(out, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrollments: %w", err)
	}
	return out, nil
}

func (r *PostgresProgressRepository) listAttempts(ctx context.Context, studentID, courseID string) ([]attemptRow, error) {
	query := `SELECT a.student_id, a.course_id, a.milestone, a.attempts, a.last_attempt_on
               FROM milestone_attempts a
               JOIN enrollments e ON e.student_id = a.student_id AND e.course_id = a.course_id
               JOIN students s ON s.id = e.student_id
               WHERE ` + enrollmentFilter

	rows, err := r.db.QueryContext(ctx, query, studentID, courseID)
	if err != nil {
		return nil, fmt.Errorf("error listing milestone attempts: %w", err)
	}
	defer rows.Close()

	out := make([]attemptRow, 0)
	for rows.Next() {
		var a attemptRow
		if err := rows.Scan(&a.StudentID, &a.CourseID, &a.Milestone, &a.Attempts, &a.LastAttemptOn); err != nil {
			return nil, fmt.Errorf("error scanning milestone attempt: %w", err)
		}
		out = append(out, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating milestone attempts: %w", err)
	}
	return out, nil
}

// lastSentOn returns the latest ledger date per student across all courses.
func (r *PostgresProgressRepository) lastSentOn(ctx context.Context, studentIDs []string) (map[string]time.Time, error) {
	query := `SELECT student_id, MAX(sent_on)
               FROM sent_messages
               WHERE student_id = ANY($1::varchar[])
               GROUP BY student_id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(studentIDs))
	if err != nil {
		return nil, fmt.Errorf("error listing last sent dates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time, len(studentIDs))
	for rows.Next() {
		var id string
		var on time.Time
		if err := rows.Scan(&id, &on); err != nil {
			return nil, fmt.Errorf("error scanning last sent date: %w", err)
		}
		out[id] = on
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating last sent dates: %w", err)
	}
	return out, nil
}

// assembleSnapshots turns loaded rows into snapshots. Unknown milestone names
// leave CurrentMilestone zero, which the selector treats as nothing to send.
func assembleSnapshots(enrollments []enrollmentRow, attempts []attemptRow, lastSent map[string]time.Time, names map[string]string, today time.Time) []*outreach.ProgressSnapshot {
	type key struct{ student, course string }
	byKey := make(map[key]*outreach.ProgressSnapshot, len(enrollments))
	out := make([]*outreach.ProgressSnapshot, 0, len(enrollments))

	for _, e := range enrollments {
		current, _ := outreach.ParseMilestone(e.CurrentMilestone)
		snap := &outreach.ProgressSnapshot{
			StudentID:         e.StudentID,
			CourseID:          e.CourseID,
			CourseName:        names[e.CourseID],
			FirstName:         e.FirstName,
			Email:             e.Email,
			Attempts:          make(map[outreach.MilestoneKind]int),
			LastAttempt:       make(map[outreach.MilestoneKind]time.Time),
			InPerson:          e.InPerson,
			PaceTotal:         e.PaceTotal,
			CourseIndex:       e.CourseIndex,
			Completed:         e.Completed,
			PassedReviewExam4: e.PassedReviewExam4,
			LastTryEligible:   e.LastTryEligible,
			CurrentMilestone:  current,
			Urgency:           e.Urgency,
			Blocked:           e.Blocked,
			Schedule: outreach.Schedule{
				SkillsReview: dateOrZero(e.SkillsReviewDue),
				Final:        dateOrZero(e.FinalDue),
				LastTry:      dateOrZero(e.LastTryDue),
			},
		}
		for i := 0; i < outreach.MaxUnit; i++ {
			snap.Schedule.ReviewExams[i] = dateOrZero(e.ReviewExamDue[i])
			snap.Schedule.UnitExams[i] = dateOrZero(e.UnitExamDue[i])
		}

		lastActivity := e.EnrolledOn
		if e.LastActivityOn.Valid {
			lastActivity = e.LastActivityOn.Time
		}
		snap.DaysSinceLastActivity = max(outreach.DaysBetween(lastActivity, today), 0)

		snap.DaysSinceLastMessage = outreach.NoMessagesWeekdays
		if last, ok := lastSent[e.StudentID]; ok {
			snap.DaysSinceLastMessage = outreach.WeekdaysSince(last, today)
		}

		byKey[key{e.StudentID, e.CourseID}] = snap
		out = append(out, snap)
	}

	for _, a := range attempts {
		snap, ok := byKey[key{a.StudentID, a.CourseID}]
		if !ok {
			continue
		}
		kind, err := outreach.ParseMilestone(a.Milestone)
		if err != nil {
			continue
		}
		snap.Attempts[kind] = a.Attempts
		if a.LastAttemptOn.Valid {
			snap.LastAttempt[kind] = a.LastAttemptOn.Time
		}
	}
	return out
}

func dateOrZero(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}
