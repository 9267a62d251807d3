package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidOptions is returned when run options cannot be honoured.
	ErrInvalidOptions = errors.New("invalid scheduler options")
	// ErrInvalidSnapshot is returned when entity records fail validation.
	ErrInvalidSnapshot = errors.New("invalid domain snapshot")
	// ErrInvalidGrid is returned when the working hours produce no usable slots.
	ErrInvalidGrid = errors.New("invalid time grid")
	// ErrMergeConflict signals that independently scheduled partitions overlap.
	ErrMergeConflict = errors.New("partition merge conflict")
)

// IssueKind enumerates structural reasons a requirement can never be placed.
type IssueKind string

const (
	IssueUnknownBatch          IssueKind = "UNKNOWN_BATCH"
	IssueNoQualifiedFaculty    IssueKind = "NO_QUALIFIED_FACULTY"
	IssueNoCompatibleClassroom IssueKind = "NO_COMPATIBLE_CLASSROOM"
)

// ConfigurationIssue names one unsatisfiable (batch, subject) pairing.
type ConfigurationIssue struct {
	BatchID   string    `json:"batch_id"`
	SubjectID string    `json:"subject_id,omitempty"`
	Kind      IssueKind `json:"kind"`
	Message   string    `json:"message"`
}

// ConfigurationError reports every requirement that is unsatisfiable before search starts.
type ConfigurationError struct {
	Issues []ConfigurationIssue
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e == nil || len(e.Issues) == 0 {
		return "configuration error"
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Message)
	}
	return fmt.Sprintf("configuration error: %s", strings.Join(parts, "; "))
}

// SubjectIDs lists the subjects named by the issues, in issue order without duplicates.
func (e *ConfigurationError) SubjectIDs() []string {
	if e == nil {
		return nil
	}
	seen := make(map[string]bool, len(e.Issues))
	var ids []string
	for _, issue := range e.Issues {
		if issue.SubjectID == "" || seen[issue.SubjectID] {
			continue
		}
		seen[issue.SubjectID] = true
		ids = append(ids, issue.SubjectID)
	}
	return ids
}

// OccupiedError is returned by ConflictIndex.Apply when a resource is already taken.
type OccupiedError struct {
	Resource Resource
	ID       string
	Slot     TimeSlot
	By       RequirementKey
}

func (e *OccupiedError) Error() string {
	return fmt.Sprintf("%s %s already occupied at %s by %s", e.Resource, e.ID, e.Slot, e.By)
}
