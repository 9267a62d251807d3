package dto

import (
	"time"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

// SoftWeightsRequest overrides the weight of each soft constraint.
type SoftWeightsRequest struct {
	Workload    *float64 `json:"workload" validate:"omitempty,min=0"`
	Contiguity  *float64 `json:"contiguity" validate:"omitempty,min=0"`
	Consecutive *float64 `json:"consecutive" validate:"omitempty,min=0"`
}

// RepairRequest tunes the improvement pass run on complete timetables.
type RepairRequest struct {
	Enabled       *bool `json:"enabled"`
	Restarts      *int  `json:"restarts" validate:"omitempty,min=1,max=32"`
	MaxIterations *int  `json:"max_iterations" validate:"omitempty,min=0,max=100000"`
	TimeBudgetMS  *int  `json:"time_budget_ms" validate:"omitempty,min=0"`
}

// TimetableConstraints carries per-request overrides. Omitted fields keep their defaults.
type TimetableConstraints struct {
	StartTime              *string             `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime                *string             `json:"end_time" validate:"omitempty,datetime=15:04"`
	PeriodDuration         *int                `json:"period_duration" validate:"omitempty,min=15,max=240"`
	BreakDuration          *int                `json:"break_duration" validate:"omitempty,min=0,max=120"`
	LunchBreakStart        *string             `json:"lunch_break_start" validate:"omitempty,datetime=15:04"`
	LunchBreakDuration     *int                `json:"lunch_break_duration" validate:"omitempty,min=0,max=180"`
	MaxHoursPerDay         *int                `json:"max_hours_per_day" validate:"omitempty,min=1,max=24"`
	NoBackToBackLabs       *bool               `json:"no_back_to_back_labs"`
	MaxConsecutiveHours    *int                `json:"max_consecutive_hours" validate:"omitempty,min=1,max=24"`
	Days                   []string            `json:"days" validate:"omitempty,dive,oneof=monday tuesday wednesday thursday friday saturday sunday"`
	LabBlockPeriods        *int                `json:"lab_block_periods" validate:"omitempty,min=1,max=6"`
	EscalateConsecutiveCap *bool               `json:"escalate_consecutive_cap"`
	SoftWeights            *SoftWeightsRequest `json:"soft_weights"`
	MaxNodes               *int                `json:"max_nodes" validate:"omitempty,min=1"`
	TimeBudgetMS           *int                `json:"time_budget_ms" validate:"omitempty,min=0"`
	Repair                 *RepairRequest      `json:"repair"`
	Seed                   *int64              `json:"seed"`
	Partitioned            *bool               `json:"partitioned"`
}

// GenerateTimetableRequest asks for a timetable covering the listed batches.
type GenerateTimetableRequest struct {
	BatchIDs    []string              `json:"batch_ids" validate:"required,min=1,dive,required"`
	Constraints *TimetableConstraints `json:"constraints"`
}

// ScheduledSession is one placed session in the generation response.
type ScheduledSession struct {
	BatchID      string `json:"batch_id"`
	SubjectID    string `json:"subject_id"`
	FacultyID    string `json:"faculty_id"`
	ClassroomID  string `json:"classroom_id"`
	Day          string `json:"day"`
	TimeSlot     string `json:"time_slot"`
	SessionIndex int    `json:"session_index"`
	Periods      int    `json:"periods"`
}

// UnscheduledSession is a session the generator could not place.
type UnscheduledSession struct {
	BatchID      string `json:"batch_id"`
	SubjectID    string `json:"subject_id"`
	SessionIndex int    `json:"session_index"`
	Reason       string `json:"reason"`
	Detail       string `json:"detail,omitempty"`
}

// GenerationStats summarises the search effort of a run.
type GenerationStats struct {
	Nodes            int     `json:"nodes"`
	Backtracks       int     `json:"backtracks"`
	Exhausted        bool    `json:"exhausted"`
	Score            float64 `json:"score"`
	RepairIterations int     `json:"repair_iterations"`
	Partitions       int     `json:"partitions,omitempty"`
	DurationMS       int64   `json:"duration_ms"`
}

// GenerateTimetableResponse is the outcome of a generation run. Success is false
// when any session stayed unscheduled.
type GenerateTimetableResponse struct {
	Success     bool                 `json:"success"`
	Status      string               `json:"status"`
	Scheduled   []ScheduledSession   `json:"scheduled"`
	Unscheduled []UnscheduledSession `json:"unscheduled"`
	Stats       GenerationStats      `json:"stats"`
}

// GenerationRunResponse reports the state of an asynchronous generation run.
type GenerationRunResponse struct {
	RunID      string                     `json:"run_id"`
	Status     string                     `json:"status"`
	Error      string                     `json:"error,omitempty"`
	Result     *GenerateTimetableResponse `json:"result,omitempty"`
	EnqueuedAt time.Time                  `json:"enqueued_at"`
	StartedAt  *time.Time                 `json:"started_at,omitempty"`
	FinishedAt *time.Time                 `json:"finished_at,omitempty"`
}

// TimetableView lists the enriched entries of one batch or lecturer.
type TimetableView struct {
	OwnerID string                        `json:"owner_id"`
	Kind    string                        `json:"kind"`
	Entries []models.TimetableEntryDetail `json:"entries"`
}

// ExportTimetableQuery selects the export format.
type ExportTimetableQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
