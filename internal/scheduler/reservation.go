package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

// Interval is a half-open span of minutes on one weekday.
type Interval struct {
	Day   time.Weekday
	Start int
	End   int
}

// Overlaps reports whether both intervals share at least one minute.
func (i Interval) Overlaps(o Interval) bool {
	return i.Day == o.Day && i.Start < o.End && o.Start < i.End
}

// Contains reports whether the minute falls inside the interval on day.
func (i Interval) Contains(day time.Weekday, minute int) bool {
	return i.Day == day && i.Start <= minute && minute < i.End
}

func (i Interval) Minutes() int {
	return i.End - i.Start
}

func (i Interval) String() string {
	return fmt.Sprintf("%s %s-%s", DayName(i.Day), formatClock(i.Start), formatClock(i.End))
}

// Reservation is occupancy fixed before a run starts: a stored session of a batch
// outside the run, or a substitute already covering a session. Empty resource ids
// reserve nothing in that dimension.
type Reservation struct {
	Ref         string
	Key         RequirementKey
	FacultyID   string
	ClassroomID string
	Interval    Interval
}

// EntryInterval resolves a stored day and "HH:MM-HH:MM" label to minutes. A label
// without an end covers periods back-to-back periods of periodMinutes.
func EntryInterval(day, label string, periods, periodMinutes int) (Interval, error) {
	weekday, err := ParseDay(day)
	if err != nil {
		return Interval{}, err
	}
	startRaw, endRaw, ranged := strings.Cut(strings.TrimSpace(label), "-")
	start, err := parseClock(startRaw)
	if err != nil {
		return Interval{}, fmt.Errorf("time slot %q: %w", label, err)
	}
	if !ranged {
		if periods <= 0 {
			periods = 1
		}
		return Interval{Day: weekday, Start: start, End: start + periods*periodMinutes}, nil
	}
	end, err := parseClock(endRaw)
	if err != nil {
		return Interval{}, fmt.Errorf("time slot %q: %w", label, err)
	}
	if end <= start {
		return Interval{}, fmt.Errorf("time slot %q ends before it starts", label)
	}
	return Interval{Day: weekday, Start: start, End: end}, nil
}

// ReserveEntries turns stored timetable entries into reservations. Entries whose
// day or time cannot be read are returned as skipped descriptions.
func ReserveEntries(entries []models.TimetableEntry, periodMinutes int) ([]Reservation, []string) {
	out := make([]Reservation, 0, len(entries))
	var skipped []string
	for _, e := range entries {
		span, err := EntryInterval(e.Day, e.TimeSlot, e.Periods, periodMinutes)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", e.ID, err))
			continue
		}
		out = append(out, Reservation{
			Ref:         e.ID,
			Key:         RequirementKey{BatchID: e.BatchID, SubjectID: e.SubjectID, SessionIndex: e.SessionIndex},
			FacultyID:   e.FacultyID,
			ClassroomID: e.ClassroomID,
			Interval:    span,
		})
	}
	return out, skipped
}
