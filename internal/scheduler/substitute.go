package scheduler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

// SubstituteOutcome is the result state of a substitute search.
type SubstituteOutcome string

const (
	OutcomeSubstituted           SubstituteOutcome = "SUBSTITUTED"
	OutcomeNoMatchingSession     SubstituteOutcome = "NO_MATCHING_SESSION"
	OutcomeNoQualifiedSubstitute SubstituteOutcome = "NO_QUALIFIED_SUBSTITUTE"
)

// SubstituteCandidate is a faculty member free to cover a session.
type SubstituteCandidate struct {
	FacultyID       string  `json:"faculty_id"`
	Score           float64 `json:"score"`
	WorkloadHours   float64 `json:"workload"`
	DepartmentMatch bool    `json:"department_match"`
}

// RejectedCandidate is a qualified faculty member who fails a hard constraint.
type RejectedCandidate struct {
	FacultyID  string      `json:"faculty_id"`
	Violations []Violation `json:"violated_hard_constraints"`
}

// SubstituteResult carries the ranked recommendation for one absence. Entry is the
// stored session as persisted; Session is the same session laid out on the grid.
type SubstituteResult struct {
	Outcome     SubstituteOutcome
	Entry       models.TimetableEntry
	Span        Interval
	Session     *Assignment
	Recommended *SubstituteCandidate
	Ranked      []SubstituteCandidate
	Rejected    []RejectedCandidate
}

type storedSession struct {
	entry models.TimetableEntry
	span  Interval
}

// SubstituteFinder recommends replacement faculty against a persisted timetable.
// Occupancy is compared in minutes, so entries generated on any period grid are
// checked exactly as stored.
type SubstituteFinder struct {
	snap     *Snapshot
	grid     *Grid
	rules    Constraints
	index    *ConflictIndex
	sessions map[string][]storedSession
	skipped  []string
}

// NewSubstituteFinder rebuilds the occupancy of the stored timetable plus the covers
// already given to substitutes. Entries or covers that no longer resolve are skipped
// and reported by Skipped.
func NewSubstituteFinder(snap *Snapshot, rules Constraints, entries []models.TimetableEntry, covers ...models.Absence) (*SubstituteFinder, error) {
	if snap == nil {
		return nil, ErrInvalidSnapshot
	}
	if len(rules.Days) == 0 {
		rules.Days = DefaultConstraints().Days
	}
	grid, err := NewGrid(rules)
	if err != nil {
		return nil, err
	}
	f := &SubstituteFinder{
		snap:     snap,
		grid:     grid,
		rules:    rules,
		index:    NewConflictIndex(grid.PeriodMinutes()),
		sessions: make(map[string][]storedSession),
	}
	for _, entry := range entries {
		if err := f.restore(entry); err != nil {
			f.skipped = append(f.skipped, fmt.Sprintf("%s: %v", entry.ID, err))
		}
	}
	for _, cover := range covers {
		if err := f.cover(cover); err != nil {
			f.skipped = append(f.skipped, fmt.Sprintf("absence %s: %v", cover.ID, err))
		}
	}
	return f, nil
}

// Grid returns the time grid sessions are laid out on.
func (f *SubstituteFinder) Grid() *Grid {
	return f.grid
}

// Skipped lists stored entries and covers that could not be resolved.
func (f *SubstituteFinder) Skipped() []string {
	return f.skipped
}

// Find locates the session the absent lecturer teaches at the absence's day and time
// and ranks the faculty able to cover it.
func (f *SubstituteFinder) Find(absence models.Absence) (*SubstituteResult, error) {
	day, start, err := absenceStart(absence)
	if err != nil {
		return nil, err
	}

	stored, ok := f.sessionAt(absence.LecturerID, Interval{Day: day, Start: start, End: start + 1})
	if !ok {
		return &SubstituteResult{Outcome: OutcomeNoMatchingSession}, nil
	}
	batch, _ := f.snap.Batch(stored.entry.BatchID)

	res := &SubstituteResult{Entry: stored.entry, Span: stored.span, Session: f.layout(stored)}
	for _, id := range f.snap.QualifiedFaculty(stored.entry.SubjectID) {
		if id == absence.LecturerID {
			continue
		}
		if violations := f.check(id, stored.span); len(violations) > 0 {
			res.Rejected = append(res.Rejected, RejectedCandidate{FacultyID: id, Violations: violations})
			continue
		}
		member, _ := f.snap.Faculty(id)
		hours := float64(f.index.FacultyWeeklyMinutes(id)) / 60
		res.Ranked = append(res.Ranked, SubstituteCandidate{
			FacultyID:       id,
			Score:           1 / (1 + hours),
			WorkloadHours:   hours,
			DepartmentMatch: strings.EqualFold(member.Department, batch.Department),
		})
	}
	sort.SliceStable(res.Ranked, func(i, j int) bool {
		a, b := res.Ranked[i], res.Ranked[j]
		if a.WorkloadHours != b.WorkloadHours {
			return a.WorkloadHours < b.WorkloadHours
		}
		if a.DepartmentMatch != b.DepartmentMatch {
			return a.DepartmentMatch
		}
		return a.FacultyID < b.FacultyID
	})

	if len(res.Ranked) == 0 {
		res.Outcome = OutcomeNoQualifiedSubstitute
		return res, nil
	}
	res.Outcome = OutcomeSubstituted
	top := res.Ranked[0]
	res.Recommended = &top
	return res, nil
}

// check applies the faculty hard constraints to a candidate taking over span.
func (f *SubstituteFinder) check(facultyID string, span Interval) []Violation {
	var out []Violation
	for _, r := range f.index.Reserved(ResourceFaculty, facultyID) {
		if r.Interval.Overlaps(span) {
			out = append(out, Violation{Kind: ViolationFacultyBusy, Detail: fmt.Sprintf("faculty %s teaches %s at %s", facultyID, r.Key, r.Interval)})
		}
	}
	if limit := f.rules.MaxHoursPerDay * 60; limit > 0 {
		if used := f.index.FacultyMinutesOn(facultyID, span.Day); used+span.Minutes() > limit {
			out = append(out, Violation{Kind: ViolationDailyHours, Detail: fmt.Sprintf("faculty %s would teach %d minutes on %s, limit %d", facultyID, used+span.Minutes(), DayName(span.Day), limit)})
		}
	}
	if f.rules.EscalateConsecutiveCap && f.rules.MaxConsecutiveHours > 0 {
		if run := f.consecutiveRun(facultyID, span); run > f.rules.MaxConsecutiveHours*60 {
			out = append(out, Violation{Kind: ViolationConsecutiveHours, Detail: fmt.Sprintf("faculty %s would teach %d consecutive minutes", facultyID, run)})
		}
	}
	return out
}

// consecutiveRun sums the teaching minutes of the chain containing span, where
// sessions separated by no more than a break belong to one chain.
func (f *SubstituteFinder) consecutiveRun(facultyID string, span Interval) int {
	day := []Interval{span}
	for _, r := range f.index.Reserved(ResourceFaculty, facultyID) {
		if r.Interval.Day == span.Day {
			day = append(day, r.Interval)
		}
	}
	sort.Slice(day, func(i, j int) bool { return day[i].Start < day[j].Start })
	run, end, found := 0, -1, false
	for _, iv := range day {
		if end >= 0 && iv.Start-end > f.rules.BreakDuration {
			if found {
				break
			}
			run = 0
		}
		run += iv.Minutes()
		if iv.End > end {
			end = iv.End
		}
		if iv == span {
			found = true
		}
	}
	return run
}

// sessionAt returns the lecturer's stored session overlapping at.
func (f *SubstituteFinder) sessionAt(lecturerID string, at Interval) (storedSession, bool) {
	for _, s := range f.sessions[lecturerID] {
		if s.span.Overlaps(at) {
			return s, true
		}
	}
	return storedSession{}, false
}

// restore reserves a stored entry's lecturer, room and batch for its stored minutes.
func (f *SubstituteFinder) restore(entry models.TimetableEntry) error {
	if _, ok := f.snap.Subject(entry.SubjectID); !ok {
		return fmt.Errorf("unknown subject %s", entry.SubjectID)
	}
	if _, ok := f.snap.Batch(entry.BatchID); !ok {
		return fmt.Errorf("unknown batch %s", entry.BatchID)
	}
	span, err := EntryInterval(entry.Day, entry.TimeSlot, entry.Periods, f.grid.PeriodMinutes())
	if err != nil {
		return err
	}
	f.index.Reserve(Reservation{
		Ref:         entry.ID,
		Key:         RequirementKey{BatchID: entry.BatchID, SubjectID: entry.SubjectID, SessionIndex: entry.SessionIndex},
		FacultyID:   entry.FacultyID,
		ClassroomID: entry.ClassroomID,
		Interval:    span,
	})
	f.sessions[entry.FacultyID] = append(f.sessions[entry.FacultyID], storedSession{entry: entry, span: span})
	return nil
}

// cover books the substitute of an already handled absence for the covered session.
func (f *SubstituteFinder) cover(absence models.Absence) error {
	if absence.SubstituteID == nil || *absence.SubstituteID == "" {
		return fmt.Errorf("no substitute recorded")
	}
	day, start, err := absenceStart(absence)
	if err != nil {
		return err
	}
	stored, ok := f.sessionAt(absence.LecturerID, Interval{Day: day, Start: start, End: start + 1})
	if !ok {
		return fmt.Errorf("lecturer %s has no session at %s", absence.LecturerID, absence.TimeSlot)
	}
	f.index.Reserve(Reservation{
		Ref:       absence.ID,
		Key:       RequirementKey{BatchID: stored.entry.BatchID, SubjectID: stored.entry.SubjectID, SessionIndex: stored.entry.SessionIndex},
		FacultyID: *absence.SubstituteID,
		Interval:  stored.span,
	})
	return nil
}

// layout places a stored session on the finder's grid. Sessions generated on another
// grid are laid out period by period from their start time.
func (f *SubstituteFinder) layout(s storedSession) *Assignment {
	slots, err := f.grid.ParseSpan(s.entry.Day, s.entry.TimeSlot)
	if err != nil {
		slots = f.looseSpan(s.span, s.entry.Periods)
	}
	sub, _ := f.snap.Subject(s.entry.SubjectID)
	req := SessionRequirement{
		BatchID:      s.entry.BatchID,
		SubjectID:    s.entry.SubjectID,
		SessionIndex: s.entry.SessionIndex,
		Periods:      len(slots),
		Lab:          sub.IsLab(),
	}
	return &Assignment{Requirement: req, FacultyID: s.entry.FacultyID, ClassroomID: s.entry.ClassroomID, Slots: slots}
}

func (f *SubstituteFinder) looseSpan(span Interval, periods int) []TimeSlot {
	if periods <= 0 {
		periods = 1
	}
	slots := make([]TimeSlot, 0, periods)
	for i, start := 0, span.Start; i < periods; i++ {
		slots = append(slots, TimeSlot{Day: span.Day, Start: start})
		start += f.grid.PeriodMinutes() + f.grid.gap
	}
	return slots
}

func absenceStart(absence models.Absence) (time.Weekday, int, error) {
	day, err := ParseDay(absence.Date)
	if err != nil {
		return 0, 0, err
	}
	startRaw, _, _ := strings.Cut(strings.TrimSpace(absence.TimeSlot), "-")
	start, err := parseClock(startRaw)
	if err != nil {
		return 0, 0, fmt.Errorf("time slot %q: %w", absence.TimeSlot, err)
	}
	return day, start, nil
}
