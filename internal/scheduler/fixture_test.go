package scheduler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

type fixture struct {
	batches  []models.Batch
	subjects []models.Subject
	faculty  []models.Faculty
	rooms    []models.Classroom
}

func newFixture() *fixture {
	return &fixture{}
}

func (f *fixture) batch(id string, students int) *fixture {
	f.batches = append(f.batches, models.Batch{ID: id, Name: strings.ToUpper(id), Department: "CSE", Year: 2, Semester: 3, StudentCount: students})
	return f
}

func (f *fixture) subject(id, name string, typ models.SubjectType, hours int) *fixture {
	f.subjects = append(f.subjects, models.Subject{ID: id, Name: name, Code: strings.ToUpper(id), Department: "CSE", Year: 2, Semester: 3, Type: typ, HoursPerWeek: hours})
	return f
}

func (f *fixture) lecturer(id, department string, subjects ...string) *fixture {
	f.faculty = append(f.faculty, models.Faculty{ID: id, Name: "Dr " + id, Department: department, Subjects: subjects})
	return f
}

func (f *fixture) room(id string, typ models.ClassroomType, capacity int) *fixture {
	f.rooms = append(f.rooms, models.Classroom{ID: id, Name: "Room " + id, Type: typ, Capacity: capacity})
	return f
}

func (f *fixture) snapshot(t *testing.T) *Snapshot {
	t.Helper()
	snap, err := NewSnapshot(f.batches, f.subjects, f.faculty, f.rooms)
	require.NoError(t, err)
	return snap
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Repair.MaxIterations = 50
	return opts
}

func mustGrid(t *testing.T, c Constraints) *Grid {
	t.Helper()
	g, err := NewGrid(c)
	require.NoError(t, err)
	return g
}

func slot(day time.Weekday, clock string) TimeSlot {
	m, err := parseClock(clock)
	if err != nil {
		panic(err)
	}
	return TimeSlot{Day: day, Start: m}
}

func requirement(batchID, subjectID string, index, periods int, lab bool, faculty, rooms []string) SessionRequirement {
	return SessionRequirement{
		BatchID:      batchID,
		SubjectID:    subjectID,
		SessionIndex: index,
		Periods:      periods,
		Lab:          lab,
		faculty:      faculty,
		classrooms:   rooms,
	}
}

// requireValidTimetable rebuilds the result's occupancy and asserts every assignment
// passes the hard constraints with the rest of the timetable in place.
func requireValidTimetable(t *testing.T, s *Scheduler, res *Result) {
	t.Helper()
	x := NewConflictIndex(s.grid.PeriodMinutes())
	for _, a := range res.Assignments {
		require.NoError(t, x.Apply(a), "double booking for %s", a.Requirement.Key())
	}
	for _, a := range res.Assignments {
		violations := s.engine.Check(x, a.Requirement, a.Placement(), a)
		require.Empty(t, violations, "assignment %s violates %s", a.Requirement.Key(), joinViolations(violations))
	}
}
