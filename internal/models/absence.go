package models

import "time"

// AbsenceStatus tracks the substitution lifecycle of an absence.
type AbsenceStatus string

const (
	AbsenceStatusPending     AbsenceStatus = "pending"
	AbsenceStatusApproved    AbsenceStatus = "approved"
	AbsenceStatusSubstituted AbsenceStatus = "substituted"
)

// Absence records a lecturer being unavailable for a session.
type Absence struct {
	ID           string        `db:"id" json:"id"`
	LecturerID   string        `db:"lecturer_id" json:"lecturer_id"`
	Date         string        `db:"date" json:"date"`
	TimeSlot     string        `db:"time_slot" json:"time_slot"`
	Reason       string        `db:"reason" json:"reason"`
	Status       AbsenceStatus `db:"status" json:"status"`
	SubstituteID *string       `db:"substitute_id" json:"substitute_id,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}
