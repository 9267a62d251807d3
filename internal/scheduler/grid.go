package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TimeSlot is one period on the weekly grid. Start is minutes after midnight.
type TimeSlot struct {
	Day   time.Weekday
	Start int
}

func (s TimeSlot) String() string {
	return fmt.Sprintf("%s %s", DayName(s.Day), formatClock(s.Start))
}

// Grid is the finite, ordered set of teachable slots for a week.
type Grid struct {
	days       []time.Weekday
	period     int
	gap        int
	start      int
	end        int
	lunchStart int
	lunchEnd   int
	slots      []TimeSlot
	byDay      map[time.Weekday][]TimeSlot
	position   map[TimeSlot]int
	ordinal    map[TimeSlot]int
}

// NewGrid lays out periods for each working day.
func NewGrid(c Constraints) (*Grid, error) {
	start, err := parseClock(c.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: start_time: %v", ErrInvalidGrid, err)
	}
	end, err := parseClock(c.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: end_time: %v", ErrInvalidGrid, err)
	}
	if end <= start {
		return nil, fmt.Errorf("%w: end_time must be after start_time", ErrInvalidGrid)
	}
	if c.PeriodDuration <= 0 {
		return nil, fmt.Errorf("%w: period_duration must be positive", ErrInvalidGrid)
	}
	if c.BreakDuration < 0 || c.LunchBreakDuration < 0 {
		return nil, fmt.Errorf("%w: break durations must not be negative", ErrInvalidGrid)
	}
	lunchStart, lunchEnd := 0, 0
	if c.LunchBreakDuration > 0 && c.LunchBreakStart != "" {
		lunchStart, err = parseClock(c.LunchBreakStart)
		if err != nil {
			return nil, fmt.Errorf("%w: lunch_break_start: %v", ErrInvalidGrid, err)
		}
		lunchEnd = lunchStart + c.LunchBreakDuration
	}

	g := &Grid{
		period:     c.PeriodDuration,
		gap:        c.BreakDuration,
		start:      start,
		end:        end,
		lunchStart: lunchStart,
		lunchEnd:   lunchEnd,
		byDay:      make(map[time.Weekday][]TimeSlot),
		position:   make(map[TimeSlot]int),
		ordinal:    make(map[TimeSlot]int),
	}

	var starts []int
	for t := start; t+c.PeriodDuration <= end; {
		if g.overlapsLunch(t) {
			t = lunchEnd
			continue
		}
		starts = append(starts, t)
		t += c.PeriodDuration + c.BreakDuration
	}
	if len(starts) == 0 {
		return nil, fmt.Errorf("%w: working hours fit no period", ErrInvalidGrid)
	}

	seen := make(map[time.Weekday]bool)
	for _, day := range c.Days {
		if seen[day] {
			continue
		}
		seen[day] = true
		g.days = append(g.days, day)
	}
	if len(g.days) == 0 {
		return nil, fmt.Errorf("%w: no working days", ErrInvalidGrid)
	}
	sortWeekdays(g.days)

	for _, day := range g.days {
		for i, s := range starts {
			slot := TimeSlot{Day: day, Start: s}
			g.position[slot] = i
			g.ordinal[slot] = len(g.slots)
			g.slots = append(g.slots, slot)
			g.byDay[day] = append(g.byDay[day], slot)
		}
	}
	return g, nil
}

// Slots returns every slot, day-major in chronological order.
func (g *Grid) Slots() []TimeSlot {
	out := make([]TimeSlot, len(g.slots))
	copy(out, g.slots)
	return out
}

// Days returns the working days in week order.
func (g *Grid) Days() []time.Weekday {
	out := make([]time.Weekday, len(g.days))
	copy(out, g.days)
	return out
}

// PeriodMinutes is the length of one period.
func (g *Grid) PeriodMinutes() int {
	return g.period
}

// Contains reports whether the slot is a grid period inside working hours.
func (g *Grid) Contains(s TimeSlot) bool {
	_, ok := g.position[s]
	return ok
}

// WithinHours reports whether a period starting at s lies inside working hours and
// outside the lunch window. Off-grid starts are allowed here; Contains is stricter.
func (g *Grid) WithinHours(s TimeSlot) bool {
	if _, ok := g.byDay[s.Day]; !ok {
		return false
	}
	if s.Start < g.start || s.Start+g.period > g.end {
		return false
	}
	return !g.overlapsLunch(s.Start)
}

// Ordinal orders slots across the week. Unknown slots sort last.
func (g *Grid) Ordinal(s TimeSlot) int {
	if o, ok := g.ordinal[s]; ok {
		return o
	}
	return len(g.slots)
}

// Next returns the slot immediately following s when the two are adjacent.
func (g *Grid) Next(s TimeSlot) (TimeSlot, bool) {
	pos, ok := g.position[s]
	if !ok {
		return TimeSlot{}, false
	}
	day := g.byDay[s.Day]
	if pos+1 >= len(day) {
		return TimeSlot{}, false
	}
	next := day[pos+1]
	if next.Start-(s.Start+g.period) > g.gap {
		return TimeSlot{}, false
	}
	return next, true
}

// Prev returns the slot immediately preceding s when the two are adjacent.
func (g *Grid) Prev(s TimeSlot) (TimeSlot, bool) {
	pos, ok := g.position[s]
	if !ok || pos == 0 {
		return TimeSlot{}, false
	}
	prev := g.byDay[s.Day][pos-1]
	if s.Start-(prev.Start+g.period) > g.gap {
		return TimeSlot{}, false
	}
	return prev, true
}

// Block returns n adjacent slots starting at s.
func (g *Grid) Block(s TimeSlot, n int) ([]TimeSlot, bool) {
	if n <= 0 || !g.Contains(s) {
		return nil, false
	}
	block := make([]TimeSlot, 0, n)
	block = append(block, s)
	cur := s
	for len(block) < n {
		next, ok := g.Next(cur)
		if !ok {
			return nil, false
		}
		block = append(block, next)
		cur = next
	}
	return block, true
}

// Label renders a single slot as "09:00-10:00".
func (g *Grid) Label(s TimeSlot) string {
	return formatClock(s.Start) + "-" + formatClock(s.Start+g.period)
}

// SpanLabel renders a contiguous block from the start of the first slot to the end
// of the last.
func (g *Grid) SpanLabel(slots []TimeSlot) string {
	if len(slots) == 0 {
		return ""
	}
	last := slots[len(slots)-1]
	return formatClock(slots[0].Start) + "-" + formatClock(last.Start+g.period)
}

// ParseSpan resolves a day name and a label ("09:00-10:00", "09:00-11:15" or "09:00")
// into grid slots.
func (g *Grid) ParseSpan(day, label string) ([]TimeSlot, error) {
	weekday, err := ParseDay(day)
	if err != nil {
		return nil, err
	}
	label = strings.TrimSpace(label)
	startRaw, endRaw, ranged := strings.Cut(label, "-")
	start, err := parseClock(startRaw)
	if err != nil {
		return nil, fmt.Errorf("time slot %q: %w", label, err)
	}
	first := TimeSlot{Day: weekday, Start: start}
	if !g.Contains(first) {
		return nil, fmt.Errorf("time slot %q is not on the grid", label)
	}
	if !ranged {
		return []TimeSlot{first}, nil
	}
	end, err := parseClock(endRaw)
	if err != nil {
		return nil, fmt.Errorf("time slot %q: %w", label, err)
	}
	slots := []TimeSlot{first}
	cur := first
	for cur.Start+g.period < end {
		next, ok := g.Next(cur)
		if !ok {
			return nil, fmt.Errorf("time slot %q does not span adjacent periods", label)
		}
		slots = append(slots, next)
		cur = next
	}
	if cur.Start+g.period != end {
		return nil, fmt.Errorf("time slot %q does not align with period boundaries", label)
	}
	return slots, nil
}

func (g *Grid) overlapsLunch(start int) bool {
	if g.lunchEnd <= g.lunchStart {
		return false
	}
	return start < g.lunchEnd && start+g.period > g.lunchStart
}

var dayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// DayName returns the lowercase English name used on the wire.
func DayName(d time.Weekday) string {
	return strings.ToLower(d.String())
}

// ParseDay accepts a day name ("monday", "MON") or an ISO date ("2025-03-03").
func ParseDay(raw string) (time.Weekday, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if d, ok := dayNames[value]; ok {
		return d, nil
	}
	if len(value) >= 3 {
		for name, d := range dayNames {
			if strings.HasPrefix(name, value) {
				return d, nil
			}
		}
	}
	if date, err := time.Parse("2006-01-02", value); err == nil {
		return date.Weekday(), nil
	}
	return 0, fmt.Errorf("unrecognised day %q", raw)
}

func parseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	hh, mm, ok := strings.Cut(raw, ":")
	if !ok {
		return 0, fmt.Errorf("clock %q must be HH:MM", raw)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("clock %q has invalid hour", raw)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q has invalid minute", raw)
	}
	return h*60 + m, nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Monday opens the week and Sunday closes it.
func weekdayRank(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func sortWeekdays(days []time.Weekday) {
	sort.Slice(days, func(i, j int) bool {
		return weekdayRank(days[i]) < weekdayRank(days[j])
	})
}
