package models

import "time"

// SubjectType distinguishes lecture subjects from laboratory subjects.
type SubjectType string

const (
	SubjectTypeTheory SubjectType = "theory"
	SubjectTypeLab    SubjectType = "lab"
)

// Subject represents a course offered to a department/year/semester cohort.
type Subject struct {
	ID           string      `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	Code         string      `db:"code" json:"code"`
	Department   string      `db:"department" json:"department"`
	Year         int         `db:"year" json:"year"`
	Semester     int         `db:"semester" json:"semester"`
	Type         SubjectType `db:"type" json:"type"`
	HoursPerWeek int         `db:"hours_per_week" json:"hours_per_week"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

// IsLab reports whether the subject requires a laboratory room.
func (s Subject) IsLab() bool {
	return s.Type == SubjectTypeLab
}
