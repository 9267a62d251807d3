package scheduler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

var weekLabels = []string{"09:00-10:00", "10:15-11:15", "13:00-14:00", "14:15-15:15", "15:30-16:30"}

func substituteFixture(t *testing.T, extra ...models.Faculty) *Snapshot {
	t.Helper()
	f := newFixture().
		batch("b1", 40).
		batch("b-light", 30).
		batch("b-heavy", 30).
		batch("b-busy", 30).
		subject("math", "Mathematics", models.SubjectTypeTheory, 3).
		lecturer("f-absent", "CSE", "math").
		lecturer("f-light", "CSE", "math").
		lecturer("f-heavy", "CSE", "math").
		lecturer("f-busy", "CSE", "math").
		room("r1", models.ClassroomTypeLectureHall, 60).
		room("r-light", models.ClassroomTypeLectureHall, 60).
		room("r-heavy", models.ClassroomTypeLectureHall, 60).
		room("r-busy", models.ClassroomTypeLectureHall, 60)
	f.faculty = append(f.faculty, extra...)
	return f.snapshot(t)
}

// weeklyEntries spreads n one-hour sessions over Tuesday to Friday.
func weeklyEntries(prefix, batchID, facultyID, roomID string, n int) []models.TimetableEntry {
	days := []string{"tuesday", "wednesday", "thursday", "friday"}
	var out []models.TimetableEntry
	for i := 0; i < n; i++ {
		out = append(out, models.TimetableEntry{
			ID:          fmt.Sprintf("%s-%d", prefix, i),
			BatchID:     batchID,
			SubjectID:   "math",
			FacultyID:   facultyID,
			ClassroomID: roomID,
			Day:         days[i/len(weekLabels)],
			TimeSlot:    weekLabels[i%len(weekLabels)],
			Periods:     1,
		})
	}
	return out
}

func absentSession() models.TimetableEntry {
	return models.TimetableEntry{ID: "e-absent", BatchID: "b1", SubjectID: "math", FacultyID: "f-absent", ClassroomID: "r1", Day: "monday", TimeSlot: "09:00-10:00", Periods: 1}
}

func TestSubstituteFinderPrefersLighterWorkload(t *testing.T) {
	entries := []models.TimetableEntry{absentSession()}
	entries = append(entries, weeklyEntries("light", "b-light", "f-light", "r-light", 10)...)
	entries = append(entries, weeklyEntries("heavy", "b-heavy", "f-heavy", "r-heavy", 14)...)
	entries = append(entries, models.TimetableEntry{ID: "e-busy", BatchID: "b-busy", SubjectID: "math", FacultyID: "f-busy", ClassroomID: "r-busy", Day: "monday", TimeSlot: "09:00-10:00", Periods: 1})

	finder, err := NewSubstituteFinder(substituteFixture(t), DefaultConstraints(), entries)
	require.NoError(t, err)
	require.Empty(t, finder.Skipped())

	res, err := finder.Find(models.Absence{ID: "a1", LecturerID: "f-absent", Date: "Monday", TimeSlot: "09:00-10:00", Status: models.AbsenceStatusPending})
	require.NoError(t, err)

	assert.Equal(t, OutcomeSubstituted, res.Outcome)
	require.NotNil(t, res.Recommended)
	assert.Equal(t, "f-light", res.Recommended.FacultyID)
	assert.InDelta(t, 10.0, res.Recommended.WorkloadHours, 1e-9)
	assert.InDelta(t, 1.0/11.0, res.Recommended.Score, 1e-9)

	var ranked []string
	for _, c := range res.Ranked {
		ranked = append(ranked, c.FacultyID)
	}
	assert.Equal(t, []string{"f-light", "f-heavy"}, ranked)

	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "f-busy", res.Rejected[0].FacultyID)
	assert.Equal(t, ViolationFacultyBusy, res.Rejected[0].Violations[0].Kind)
	assert.Equal(t, "b1", res.Session.Requirement.BatchID)
}

func TestSubstituteFinderNoMatchingSession(t *testing.T) {
	finder, err := NewSubstituteFinder(substituteFixture(t), DefaultConstraints(), []models.TimetableEntry{absentSession()})
	require.NoError(t, err)

	res, err := finder.Find(models.Absence{LecturerID: "f-absent", Date: "tuesday", TimeSlot: "09:00-10:00"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoMatchingSession, res.Outcome)
	assert.Nil(t, res.Recommended)
	assert.Empty(t, res.Ranked)
}

func TestSubstituteFinderNoQualifiedSubstitute(t *testing.T) {
	snap := newFixture().
		batch("b1", 40).
		subject("math", "Mathematics", models.SubjectTypeTheory, 3).
		lecturer("f-absent", "CSE", "math").
		lecturer("f-art", "CSE", "painting").
		room("r1", models.ClassroomTypeLectureHall, 60).
		snapshot(t)
	finder, err := NewSubstituteFinder(snap, DefaultConstraints(), []models.TimetableEntry{absentSession()})
	require.NoError(t, err)

	res, err := finder.Find(models.Absence{LecturerID: "f-absent", Date: "2025-03-03", TimeSlot: "09:00"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoQualifiedSubstitute, res.Outcome)
	assert.NotNil(t, res.Session)
	assert.Nil(t, res.Recommended)
}

func TestSubstituteFinderBreaksTiesByDepartment(t *testing.T) {
	other := models.Faculty{ID: "f-early", Department: "ECE", Subjects: []string{"Mathematics"}}
	finder, err := NewSubstituteFinder(substituteFixture(t, other), DefaultConstraints(), []models.TimetableEntry{absentSession()})
	require.NoError(t, err)

	res, err := finder.Find(models.Absence{LecturerID: "f-absent", Date: "monday", TimeSlot: "09:00-10:00"})
	require.NoError(t, err)
	require.Len(t, res.Ranked, 4)
	assert.Equal(t, "f-busy", res.Ranked[0].FacultyID, "idle CSE faculty sort by id")
	assert.Equal(t, "f-early", res.Ranked[3].FacultyID, "other departments rank after equal workloads")
	assert.False(t, res.Ranked[3].DepartmentMatch)
}

func TestSubstituteFinderMatchesInsideBlocks(t *testing.T) {
	snap := substituteFixture(t)
	entry := absentSession()
	entry.TimeSlot = "13:00-15:15"
	entry.Periods = 2
	finder, err := NewSubstituteFinder(snap, DefaultConstraints(), []models.TimetableEntry{entry})
	require.NoError(t, err)

	res, err := finder.Find(models.Absence{LecturerID: "f-absent", Date: "monday", TimeSlot: "14:15-15:15"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubstituted, res.Outcome)
	assert.Len(t, res.Session.Slots, 2)
}

func TestSubstituteFinderSkipsStaleEntries(t *testing.T) {
	entries := []models.TimetableEntry{
		absentSession(),
		{ID: "gone", BatchID: "b1", SubjectID: "deleted", FacultyID: "f-light", ClassroomID: "r1", Day: "monday", TimeSlot: "10:15-11:15"},
		{ID: "offgrid", BatchID: "b-light", SubjectID: "math", FacultyID: "f-light", ClassroomID: "r-light", Day: "friday", TimeSlot: "08:00-09:00"},
	}
	finder, err := NewSubstituteFinder(substituteFixture(t), DefaultConstraints(), entries)
	require.NoError(t, err)
	require.Len(t, finder.Skipped(), 1)
	assert.Contains(t, finder.Skipped()[0], "gone")

	_, err = finder.Find(models.Absence{LecturerID: "f-absent", Date: "someday", TimeSlot: "09:00"})
	assert.Error(t, err)
}

func TestSubstituteFinderTreatsCoversAsOccupied(t *testing.T) {
	second := models.TimetableEntry{ID: "e-other", BatchID: "b-busy", SubjectID: "math", FacultyID: "f-busy", ClassroomID: "r-busy", Day: "monday", TimeSlot: "09:00-10:00", Periods: 1}
	entries := []models.TimetableEntry{absentSession(), second}
	entries = append(entries, weeklyEntries("heavy", "b-heavy", "f-heavy", "r-heavy", 4)...)
	substitute := "f-light"
	covered := models.Absence{ID: "a1", LecturerID: "f-absent", Date: "2025-03-03", TimeSlot: "09:00-10:00", Status: models.AbsenceStatusSubstituted, SubstituteID: &substitute}

	finder, err := NewSubstituteFinder(substituteFixture(t), DefaultConstraints(), entries, covered)
	require.NoError(t, err)
	require.Empty(t, finder.Skipped())

	res, err := finder.Find(models.Absence{ID: "a2", LecturerID: "f-busy", Date: "2025-03-03", TimeSlot: "09:00-10:00"})
	require.NoError(t, err)
	require.NotNil(t, res.Recommended)
	assert.Equal(t, "f-heavy", res.Recommended.FacultyID)

	rejected := make(map[string]ViolationKind)
	for _, r := range res.Rejected {
		rejected[r.FacultyID] = r.Violations[0].Kind
	}
	assert.Equal(t, ViolationFacultyBusy, rejected["f-light"])
	assert.Equal(t, ViolationFacultyBusy, rejected["f-absent"])
}

func TestSubstituteFinderReportsUnresolvableCovers(t *testing.T) {
	substitute := "f-light"
	covers := []models.Absence{
		{ID: "no-session", LecturerID: "f-absent", Date: "friday", TimeSlot: "09:00", SubstituteID: &substitute},
		{ID: "no-substitute", LecturerID: "f-absent", Date: "monday", TimeSlot: "09:00"},
	}
	finder, err := NewSubstituteFinder(substituteFixture(t), DefaultConstraints(), []models.TimetableEntry{absentSession()}, covers...)
	require.NoError(t, err)
	require.Len(t, finder.Skipped(), 2)
	assert.Contains(t, finder.Skipped()[0], "no-session")
	assert.Contains(t, finder.Skipped()[1], "no-substitute")
}

func TestSubstituteFinderComparesSessionsFromOtherGrids(t *testing.T) {
	entries := []models.TimetableEntry{
		{ID: "e-absent", BatchID: "b1", SubjectID: "math", FacultyID: "f-absent", ClassroomID: "r1", Day: "monday", TimeSlot: "09:00-09:45", Periods: 1},
		{ID: "e-busy", BatchID: "b-busy", SubjectID: "math", FacultyID: "f-busy", ClassroomID: "r-busy", Day: "monday", TimeSlot: "09:30-10:15", Periods: 1},
		{ID: "e-light", BatchID: "b-light", SubjectID: "math", FacultyID: "f-light", ClassroomID: "r-light", Day: "tuesday", TimeSlot: "09:00-09:45", Periods: 1},
		{ID: "e-heavy", BatchID: "b-heavy", SubjectID: "math", FacultyID: "f-heavy", ClassroomID: "r-heavy", Day: "monday", TimeSlot: "09:45-11:15", Periods: 2},
	}
	finder, err := NewSubstituteFinder(substituteFixture(t), DefaultConstraints(), entries)
	require.NoError(t, err)
	require.Empty(t, finder.Skipped())

	res, err := finder.Find(models.Absence{LecturerID: "f-absent", Date: "monday", TimeSlot: "09:00-09:45"})
	require.NoError(t, err)
	assert.Equal(t, "09:00-09:45", res.Entry.TimeSlot)
	assert.Equal(t, 45, res.Span.Minutes())

	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "f-busy", res.Rejected[0].FacultyID)
	assert.Equal(t, ViolationFacultyBusy, res.Rejected[0].Violations[0].Kind)

	require.Len(t, res.Ranked, 2)
	assert.Equal(t, "f-light", res.Ranked[0].FacultyID)
	assert.InDelta(t, 0.75, res.Ranked[0].WorkloadHours, 1e-9)
	assert.Equal(t, "f-heavy", res.Ranked[1].FacultyID)
	assert.InDelta(t, 1.5, res.Ranked[1].WorkloadHours, 1e-9)
}

func TestSubstituteFinderEnforcesDailyAndConsecutiveCaps(t *testing.T) {
	rules := DefaultConstraints()
	rules.MaxHoursPerDay = 2
	rules.MaxConsecutiveHours = 2
	rules.EscalateConsecutiveCap = true
	entries := []models.TimetableEntry{
		absentSession(),
		{ID: "light-1", BatchID: "b-light", SubjectID: "math", FacultyID: "f-light", ClassroomID: "r-light", Day: "monday", TimeSlot: "13:00-14:00", Periods: 1},
		{ID: "light-2", BatchID: "b-light", SubjectID: "math", FacultyID: "f-light", ClassroomID: "r-light", Day: "monday", TimeSlot: "14:15-15:15", Periods: 1},
		{ID: "heavy-1", BatchID: "b-heavy", SubjectID: "math", FacultyID: "f-heavy", ClassroomID: "r-heavy", Day: "monday", TimeSlot: "10:15-11:15", Periods: 1},
	}
	finder, err := NewSubstituteFinder(substituteFixture(t), rules, entries)
	require.NoError(t, err)

	res, err := finder.Find(models.Absence{LecturerID: "f-absent", Date: "monday", TimeSlot: "09:00"})
	require.NoError(t, err)

	rejected := make(map[string][]ViolationKind)
	for _, r := range res.Rejected {
		for _, v := range r.Violations {
			rejected[r.FacultyID] = append(rejected[r.FacultyID], v.Kind)
		}
	}
	assert.Equal(t, []ViolationKind{ViolationDailyHours}, rejected["f-light"])
	assert.Empty(t, rejected["f-heavy"], "a two hour run stays within the cap")
	require.NotNil(t, res.Recommended)
	assert.Equal(t, "f-busy", res.Recommended.FacultyID)

	rules.MaxConsecutiveHours = 1
	finder, err = NewSubstituteFinder(substituteFixture(t), rules, entries)
	require.NoError(t, err)
	res, err = finder.Find(models.Absence{LecturerID: "f-absent", Date: "monday", TimeSlot: "09:00"})
	require.NoError(t, err)
	rejected = make(map[string][]ViolationKind)
	for _, r := range res.Rejected {
		for _, v := range r.Violations {
			rejected[r.FacultyID] = append(rejected[r.FacultyID], v.Kind)
		}
	}
	assert.Equal(t, []ViolationKind{ViolationConsecutiveHours}, rejected["f-heavy"])
}
