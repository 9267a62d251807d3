package models

import "time"

// TimetableEntry is a persisted assignment produced by a scheduling run.
type TimetableEntry struct {
	ID           string    `db:"id" json:"id"`
	BatchID      string    `db:"batch_id" json:"batch_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	FacultyID    string    `db:"faculty_id" json:"faculty_id"`
	ClassroomID  string    `db:"classroom_id" json:"classroom_id"`
	Day          string    `db:"day" json:"day"`
	TimeSlot     string    `db:"time_slot" json:"time_slot"`
	SessionIndex int       `db:"session_index" json:"session_index"`
	Periods      int       `db:"periods" json:"periods"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TimetableEntryDetail enriches an entry with display names.
type TimetableEntryDetail struct {
	TimetableEntry
	SubjectName   string `db:"subject_name" json:"subject_name"`
	SubjectCode   string `db:"subject_code" json:"subject_code"`
	FacultyName   string `db:"faculty_name" json:"faculty_name"`
	ClassroomName string `db:"classroom_name" json:"classroom_name"`
	BatchName     string `db:"batch_name" json:"batch_name"`
}
