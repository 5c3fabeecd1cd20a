// internal/domain/outreach/dispatch.go
package outreach

import (
	"database/sql"
	"time"
)

// Content is the presentational context handed to the renderer with a body
// template. The selector fills it; it never affects which code is chosen.
type Content struct {
	CourseName        string
	CourseIndex       int
	PaceTotal         int
	InPerson          bool
	Unit              int
	Objective         int
	Proximity         Proximity
	NearDue           bool
	DueDate           time.Time
	DueDay            string
	LastCourse        bool
	PassedReviewExam4 bool
}

// DispatchRecord is one selected outgoing message. A null BodyTemplateID means
// the code is recorded in the ledger but nothing is sent.
type DispatchRecord struct {
	StudentID      string
	CourseID       string
	CourseSlot     int
	Milestone      MilestoneKind
	Code           MessageCode
	Subject        sql.NullString
	BodyTemplateID sql.NullString
	Content        Content
}

// NewDispatchRecord wraps a selection. Empty subject or body become null.
func NewDispatchRecord(snap *ProgressSnapshot, courseSlot int, milestone MilestoneKind, code MessageCode, subject, bodyTemplateID string, content Content) DispatchRecord {
	return DispatchRecord{
		StudentID:      snap.StudentID,
		CourseID:       snap.CourseID,
		CourseSlot:     courseSlot,
		Milestone:      milestone,
		Code:           code,
		Subject:        sql.NullString{String: subject, Valid: subject != ""},
		BodyTemplateID: sql.NullString{String: bodyTemplateID, Valid: bodyTemplateID != ""},
		Content:        content,
	}
}

// Suppressed reports whether the record only occupies the ledger.
func (d DispatchRecord) Suppressed() bool {
	return !d.BodyTemplateID.Valid
}
