package student

import (
	"database/sql"
	"time"
)

// Student represents a learner who can receive outreach email.
type Student struct {
	ID        string
	FirstName string
	LastName  sql.NullString
	Email     string
	IsActive  bool // paused students are skipped by every run
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName joins first and last name when a last name is known.
func (s *Student) FullName() string {
	if s.LastName.Valid && s.LastName.String != "" {
		return s.FirstName + " " + s.LastName.String
	}
	return s.FirstName
}
