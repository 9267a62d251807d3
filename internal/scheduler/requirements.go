package scheduler

import (
	"fmt"
	"sort"
)

// RequirementKey identifies one session requirement.
type RequirementKey struct {
	BatchID      string
	SubjectID    string
	SessionIndex int
}

func (k RequirementKey) String() string {
	return fmt.Sprintf("%s/%s#%d", k.BatchID, k.SubjectID, k.SessionIndex)
}

// SessionRequirement is one block of a subject that must be placed for a batch.
// Periods is 1 for single sessions and greater for contiguous lab blocks.
type SessionRequirement struct {
	BatchID      string
	SubjectID    string
	SessionIndex int
	Periods      int
	Lab          bool

	faculty    []string
	classrooms []string
}

// Key returns the identity of the requirement.
func (r SessionRequirement) Key() RequirementKey {
	return RequirementKey{BatchID: r.BatchID, SubjectID: r.SubjectID, SessionIndex: r.SessionIndex}
}

// Domain returns the statically qualified faculty and classroom ids.
func (r SessionRequirement) Domain() (faculty, classrooms []string) {
	return r.faculty, r.classrooms
}

func (r SessionRequirement) domainSize() int {
	return len(r.faculty) * len(r.classrooms)
}

// CompileRequirements expands each (batch, subject) pairing of the selected batches into
// session requirements. Unsatisfiable pairings are collected into a ConfigurationError.
func CompileRequirements(snap *Snapshot, batchIDs []string, c Constraints) ([]SessionRequirement, error) {
	ids := uniqueSorted(batchIDs)
	labBlock := c.LabBlockPeriods
	if labBlock <= 0 {
		labBlock = 1
	}

	var reqs []SessionRequirement
	var issues []ConfigurationIssue
	for _, batchID := range ids {
		batch, ok := snap.Batch(batchID)
		if !ok {
			issues = append(issues, ConfigurationIssue{
				BatchID: batchID,
				Kind:    IssueUnknownBatch,
				Message: fmt.Sprintf("batch %s does not exist", batchID),
			})
			continue
		}
		for _, sub := range snap.ApplicableSubjects(batch) {
			faculty := snap.QualifiedFaculty(sub.ID)
			rooms := snap.CompatibleClassrooms(sub, batch)
			if len(faculty) == 0 {
				issues = append(issues, ConfigurationIssue{
					BatchID:   batch.ID,
					SubjectID: sub.ID,
					Kind:      IssueNoQualifiedFaculty,
					Message:   fmt.Sprintf("subject %s (%s) has no qualified faculty", sub.ID, sub.Name),
				})
			}
			if len(rooms) == 0 {
				issues = append(issues, ConfigurationIssue{
					BatchID:   batch.ID,
					SubjectID: sub.ID,
					Kind:      IssueNoCompatibleClassroom,
					Message:   fmt.Sprintf("subject %s (%s) has no %s room for %d students", sub.ID, sub.Name, roomKind(sub.IsLab()), batch.StudentCount),
				})
			}
			if len(faculty) == 0 || len(rooms) == 0 {
				continue
			}

			blocks := sessionBlocks(sub.HoursPerWeek, 1)
			if sub.IsLab() {
				blocks = sessionBlocks(sub.HoursPerWeek, labBlock)
			}
			for i, periods := range blocks {
				reqs = append(reqs, SessionRequirement{
					BatchID:      batch.ID,
					SubjectID:    sub.ID,
					SessionIndex: i,
					Periods:      periods,
					Lab:          sub.IsLab(),
					faculty:      faculty,
					classrooms:   rooms,
				})
			}
		}
	}
	if len(issues) > 0 {
		return nil, &ConfigurationError{Issues: issues}
	}
	return reqs, nil
}

// sessionBlocks splits hours into blocks of size periods, the last possibly shorter.
func sessionBlocks(hours, size int) []int {
	var blocks []int
	for remaining := hours; remaining > 0; remaining -= size {
		if remaining < size {
			blocks = append(blocks, remaining)
			break
		}
		blocks = append(blocks, size)
	}
	return blocks
}

func roomKind(lab bool) string {
	if lab {
		return "lab"
	}
	return "lecture"
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
