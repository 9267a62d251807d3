package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// Resource names the three occupancy dimensions tracked by the ConflictIndex.
type Resource string

const (
	ResourceFaculty   Resource = "faculty"
	ResourceClassroom Resource = "classroom"
	ResourceBatch     Resource = "batch"
)

// Assignment places a requirement with a faculty member in a classroom on one or more
// adjacent slots. Assignments are never mutated once created.
type Assignment struct {
	Requirement SessionRequirement
	FacultyID   string
	ClassroomID string
	Slots       []TimeSlot
}

// Slot returns the first slot of the assignment.
func (a *Assignment) Slot() TimeSlot {
	return a.Slots[0]
}

// Placement returns the resources and slots of the assignment.
func (a *Assignment) Placement() Placement {
	return Placement{FacultyID: a.FacultyID, ClassroomID: a.ClassroomID, Slots: a.Slots}
}

func newAssignment(req SessionRequirement, p Placement) *Assignment {
	slots := make([]TimeSlot, len(p.Slots))
	copy(slots, p.Slots)
	return &Assignment{Requirement: req, FacultyID: p.FacultyID, ClassroomID: p.ClassroomID, Slots: slots}
}

// ConflictIndex tracks occupied (resource, slot) pairs during a run. Apply and Remove
// are exact inverses of each other. Reservations are fixed occupancy measured in
// minutes; they block slots they overlap and are never removed.
type ConflictIndex struct {
	period       int
	faculty      map[string]map[TimeSlot]*Assignment
	classroom    map[string]map[TimeSlot]*Assignment
	batch        map[string]map[TimeSlot]*Assignment
	dayMinutes   map[string]map[time.Weekday]int
	weekMinutes  map[string]int
	count        int
	reserved     map[Resource]map[string][]Reservation
	reservedDay  map[string]map[time.Weekday]int
	reservedWeek map[string]int
}

// NewConflictIndex creates an empty index for periods of the given length in minutes.
func NewConflictIndex(periodMinutes int) *ConflictIndex {
	return &ConflictIndex{
		period:      periodMinutes,
		faculty:     make(map[string]map[TimeSlot]*Assignment),
		classroom:   make(map[string]map[TimeSlot]*Assignment),
		batch:       make(map[string]map[TimeSlot]*Assignment),
		dayMinutes:  make(map[string]map[time.Weekday]int),
		weekMinutes: make(map[string]int),
		reserved: map[Resource]map[string][]Reservation{
			ResourceFaculty:   {},
			ResourceClassroom: {},
			ResourceBatch:     {},
		},
		reservedDay:  make(map[string]map[time.Weekday]int),
		reservedWeek: make(map[string]int),
	}
}

// Reserve records fixed occupancy for every non-empty resource of r. Overlapping
// reservations are accepted; they describe the world as it already is.
func (x *ConflictIndex) Reserve(r Reservation) {
	if r.Interval.End <= r.Interval.Start {
		return
	}
	ids := map[Resource]string{
		ResourceFaculty:   r.FacultyID,
		ResourceClassroom: r.ClassroomID,
		ResourceBatch:     r.Key.BatchID,
	}
	for resource, id := range ids {
		if id != "" {
			x.reserved[resource][id] = append(x.reserved[resource][id], r)
		}
	}
	if r.FacultyID == "" {
		return
	}
	days := x.reservedDay[r.FacultyID]
	if days == nil {
		days = make(map[time.Weekday]int)
		x.reservedDay[r.FacultyID] = days
	}
	days[r.Interval.Day] += r.Interval.Minutes()
	x.reservedWeek[r.FacultyID] += r.Interval.Minutes()
}

// Reserved returns the reservations held by a resource, in the order they were made.
func (x *ConflictIndex) Reserved(resource Resource, id string) []Reservation {
	return x.reserved[resource][id]
}

// ReservedAt returns the first reservation overlapping the period starting at slot.
func (x *ConflictIndex) ReservedAt(resource Resource, id string, slot TimeSlot) (Reservation, bool) {
	span := Interval{Day: slot.Day, Start: slot.Start, End: slot.Start + x.period}
	for _, r := range x.reserved[resource][id] {
		if r.Interval.Overlaps(span) {
			return r, true
		}
	}
	return Reservation{}, false
}

// Holder names whatever occupies the resource at slot, skipping ignored assignments.
func (x *ConflictIndex) Holder(resource Resource, id string, slot TimeSlot, ignore ...*Assignment) (RequirementKey, bool) {
	if a, ok := x.At(resource, id, slot); ok && !isIgnored(a, ignore) {
		return a.Requirement.Key(), true
	}
	if r, ok := x.ReservedAt(resource, id, slot); ok {
		return r.Key, true
	}
	return RequirementKey{}, false
}

// Apply marks every slot of the assignment in all three dimensions. Nothing is marked
// when any slot is already occupied.
func (x *ConflictIndex) Apply(a *Assignment) error {
	for _, slot := range a.Slots {
		if other, ok := x.faculty[a.FacultyID][slot]; ok {
			return &OccupiedError{Resource: ResourceFaculty, ID: a.FacultyID, Slot: slot, By: other.Requirement.Key()}
		}
		if other, ok := x.classroom[a.ClassroomID][slot]; ok {
			return &OccupiedError{Resource: ResourceClassroom, ID: a.ClassroomID, Slot: slot, By: other.Requirement.Key()}
		}
		if other, ok := x.batch[a.Requirement.BatchID][slot]; ok {
			return &OccupiedError{Resource: ResourceBatch, ID: a.Requirement.BatchID, Slot: slot, By: other.Requirement.Key()}
		}
		for _, dim := range []struct {
			resource Resource
			id       string
		}{{ResourceFaculty, a.FacultyID}, {ResourceClassroom, a.ClassroomID}, {ResourceBatch, a.Requirement.BatchID}} {
			if r, ok := x.ReservedAt(dim.resource, dim.id, slot); ok {
				return &OccupiedError{Resource: dim.resource, ID: dim.id, Slot: slot, By: r.Key}
			}
		}
	}
	if hasDuplicateSlot(a.Slots) {
		return fmt.Errorf("assignment %s repeats a slot", a.Requirement.Key())
	}
	for _, slot := range a.Slots {
		mark(x.faculty, a.FacultyID, slot, a)
		mark(x.classroom, a.ClassroomID, slot, a)
		mark(x.batch, a.Requirement.BatchID, slot, a)
		days := x.dayMinutes[a.FacultyID]
		if days == nil {
			days = make(map[time.Weekday]int)
			x.dayMinutes[a.FacultyID] = days
		}
		days[slot.Day] += x.period
		x.weekMinutes[a.FacultyID] += x.period
	}
	x.count++
	return nil
}

// Remove clears exactly the marks made by Apply for the same assignment.
func (x *ConflictIndex) Remove(a *Assignment) error {
	for _, slot := range a.Slots {
		if x.faculty[a.FacultyID][slot] != a || x.classroom[a.ClassroomID][slot] != a || x.batch[a.Requirement.BatchID][slot] != a {
			return fmt.Errorf("assignment %s is not applied at %s", a.Requirement.Key(), slot)
		}
	}
	for _, slot := range a.Slots {
		unmark(x.faculty, a.FacultyID, slot)
		unmark(x.classroom, a.ClassroomID, slot)
		unmark(x.batch, a.Requirement.BatchID, slot)
		days := x.dayMinutes[a.FacultyID]
		days[slot.Day] -= x.period
		if days[slot.Day] == 0 {
			delete(days, slot.Day)
		}
		if len(days) == 0 {
			delete(x.dayMinutes, a.FacultyID)
		}
		x.weekMinutes[a.FacultyID] -= x.period
		if x.weekMinutes[a.FacultyID] == 0 {
			delete(x.weekMinutes, a.FacultyID)
		}
	}
	x.count--
	return nil
}

// At returns the assignment occupying a resource at a slot.
func (x *ConflictIndex) At(resource Resource, id string, slot TimeSlot) (*Assignment, bool) {
	var a *Assignment
	switch resource {
	case ResourceFaculty:
		a = x.faculty[id][slot]
	case ResourceClassroom:
		a = x.classroom[id][slot]
	case ResourceBatch:
		a = x.batch[id][slot]
	}
	return a, a != nil
}

// Free reports whether the resource is unoccupied at slot, treating the ignored
// assignments as already removed. Reserved slots are never free.
func (x *ConflictIndex) Free(resource Resource, id string, slot TimeSlot, ignore ...*Assignment) bool {
	_, held := x.Holder(resource, id, slot, ignore...)
	return !held
}

// FacultyMinutesOn returns minutes taught by the faculty member on a day, reserved
// minutes included.
func (x *ConflictIndex) FacultyMinutesOn(facultyID string, day time.Weekday, ignore ...*Assignment) int {
	total := x.dayMinutes[facultyID][day] + x.reservedDay[facultyID][day]
	for _, a := range ignore {
		if a == nil || a.FacultyID != facultyID || !x.applied(a) {
			continue
		}
		for _, slot := range a.Slots {
			if slot.Day == day {
				total -= x.period
			}
		}
	}
	return total
}

// FacultyWeeklyMinutes returns minutes taught by the faculty member across the week,
// reserved minutes included.
func (x *ConflictIndex) FacultyWeeklyMinutes(facultyID string, ignore ...*Assignment) int {
	total := x.weekMinutes[facultyID] + x.reservedWeek[facultyID]
	for _, a := range ignore {
		if a == nil || a.FacultyID != facultyID || !x.applied(a) {
			continue
		}
		total -= x.period * len(a.Slots)
	}
	return total
}

// Len returns the number of applied assignments. Reservations are not counted.
func (x *ConflictIndex) Len() int {
	return x.count
}

// Assignments returns the applied assignments ordered by batch, slot and subject.
func (x *ConflictIndex) Assignments() []*Assignment {
	seen := make(map[*Assignment]bool, x.count)
	out := make([]*Assignment, 0, x.count)
	for _, slots := range x.batch {
		for _, a := range slots {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	sortAssignments(out)
	return out
}

// Clone returns an independent copy. Assignments are shared since they are immutable.
func (x *ConflictIndex) Clone() *ConflictIndex {
	c := NewConflictIndex(x.period)
	c.faculty = cloneOccupancy(x.faculty)
	c.classroom = cloneOccupancy(x.classroom)
	c.batch = cloneOccupancy(x.batch)
	for id, days := range x.dayMinutes {
		cp := make(map[time.Weekday]int, len(days))
		for d, m := range days {
			cp[d] = m
		}
		c.dayMinutes[id] = cp
	}
	for id, m := range x.weekMinutes {
		c.weekMinutes[id] = m
	}
	c.count = x.count
	for resource, byID := range x.reserved {
		for id, list := range byID {
			c.reserved[resource][id] = append([]Reservation(nil), list...)
		}
	}
	for id, days := range x.reservedDay {
		cp := make(map[time.Weekday]int, len(days))
		for d, m := range days {
			cp[d] = m
		}
		c.reservedDay[id] = cp
	}
	for id, m := range x.reservedWeek {
		c.reservedWeek[id] = m
	}
	return c
}

func (x *ConflictIndex) applied(a *Assignment) bool {
	return len(a.Slots) > 0 && x.batch[a.Requirement.BatchID][a.Slots[0]] == a
}

func mark(m map[string]map[TimeSlot]*Assignment, id string, slot TimeSlot, a *Assignment) {
	slots := m[id]
	if slots == nil {
		slots = make(map[TimeSlot]*Assignment)
		m[id] = slots
	}
	slots[slot] = a
}

func unmark(m map[string]map[TimeSlot]*Assignment, id string, slot TimeSlot) {
	slots := m[id]
	delete(slots, slot)
	if len(slots) == 0 {
		delete(m, id)
	}
}

func cloneOccupancy(src map[string]map[TimeSlot]*Assignment) map[string]map[TimeSlot]*Assignment {
	dst := make(map[string]map[TimeSlot]*Assignment, len(src))
	for id, slots := range src {
		cp := make(map[TimeSlot]*Assignment, len(slots))
		for slot, a := range slots {
			cp[slot] = a
		}
		dst[id] = cp
	}
	return dst
}

func isIgnored(a *Assignment, ignore []*Assignment) bool {
	for _, ig := range ignore {
		if ig == a {
			return true
		}
	}
	return false
}

func hasDuplicateSlot(slots []TimeSlot) bool {
	for i := range slots {
		for j := i + 1; j < len(slots); j++ {
			if slots[i] == slots[j] {
				return true
			}
		}
	}
	return false
}

func sortAssignments(list []*Assignment) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Requirement.BatchID != b.Requirement.BatchID {
			return a.Requirement.BatchID < b.Requirement.BatchID
		}
		ra, rb := weekdayRank(a.Slot().Day), weekdayRank(b.Slot().Day)
		if ra != rb {
			return ra < rb
		}
		if a.Slot().Start != b.Slot().Start {
			return a.Slot().Start < b.Slot().Start
		}
		if a.Requirement.SubjectID != b.Requirement.SubjectID {
			return a.Requirement.SubjectID < b.Requirement.SubjectID
		}
		return a.Requirement.SessionIndex < b.Requirement.SessionIndex
	})
}
