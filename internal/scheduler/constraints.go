package scheduler

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ViolationKind enumerates every reason a placement can be rejected.
type ViolationKind string

const (
	ViolationFacultyNotQualified ViolationKind = "FACULTY_NOT_QUALIFIED"
	ViolationRoomTypeMismatch    ViolationKind = "ROOM_TYPE_MISMATCH"
	ViolationRoomCapacity        ViolationKind = "ROOM_CAPACITY"
	ViolationFacultyBusy         ViolationKind = "FACULTY_BUSY"
	ViolationClassroomBusy       ViolationKind = "CLASSROOM_BUSY"
	ViolationBatchBusy           ViolationKind = "BATCH_BUSY"
	ViolationOutsideHours        ViolationKind = "OUTSIDE_WORKING_HOURS"
	ViolationDailyHours          ViolationKind = "DAILY_HOURS_EXCEEDED"
	ViolationBackToBackLabs      ViolationKind = "BACK_TO_BACK_LABS"
	ViolationConsecutiveHours    ViolationKind = "CONSECUTIVE_HOURS_EXCEEDED"
	ViolationBlockNotContiguous  ViolationKind = "BLOCK_NOT_CONTIGUOUS"
	ViolationUnknownEntity       ViolationKind = "UNKNOWN_ENTITY"
	ViolationBudgetExhausted     ViolationKind = "SEARCH_BUDGET_EXHAUSTED"
)

// Violation is one failed hard constraint.
type Violation struct {
	Kind   ViolationKind `json:"kind"`
	Detail string        `json:"detail"`
}

func (v Violation) Error() string {
	if v.Detail == "" {
		return string(v.Kind)
	}
	return fmt.Sprintf("%s: %s", v.Kind, v.Detail)
}

// Placement is a proposed (faculty, classroom, slots) triple for a requirement.
type Placement struct {
	FacultyID   string
	ClassroomID string
	Slots       []TimeSlot
}

// Candidate is a hard-legal placement with its weighted soft score.
type Candidate struct {
	Placement
	Score float64
}

// SoftScore breaks a placement's preference score down per soft constraint.
type SoftScore struct {
	Workload    float64 `json:"workload"`
	Contiguity  float64 `json:"contiguity"`
	Consecutive float64 `json:"consecutive"`
	Total       float64 `json:"total"`
}

// Engine evaluates hard and soft constraints against a ConflictIndex. It holds no
// run state of its own and is safe for concurrent use with distinct indexes.
type Engine struct {
	snap    *Snapshot
	grid    *Grid
	rules   Constraints
	weights SoftWeights
}

// NewEngine binds the constraint rules to a snapshot and grid.
func NewEngine(snap *Snapshot, grid *Grid, rules Constraints, weights SoftWeights) *Engine {
	return &Engine{snap: snap, grid: grid, rules: rules, weights: weights}
}

// Check returns every hard constraint the placement violates. Assignments in ignore
// are treated as absent from the index.
func (e *Engine) Check(x *ConflictIndex, req SessionRequirement, p Placement, ignore ...*Assignment) []Violation {
	var out []Violation
	out = append(out, e.checkStatic(req, p.FacultyID, p.ClassroomID)...)
	out = append(out, e.checkBlock(req, p.Slots)...)
	out = append(out, e.checkBatch(x, req, p.Slots, ignore)...)
	out = append(out, e.checkFaculty(x, p.FacultyID, p.Slots, ignore)...)
	out = append(out, e.checkClassroom(x, p.ClassroomID, p.Slots, ignore)...)
	return out
}

// Legal reports whether the placement passes every hard constraint, returning the
// first violation otherwise.
func (e *Engine) Legal(x *ConflictIndex, req SessionRequirement, p Placement, ignore ...*Assignment) (Violation, bool) {
	checks := []func() []Violation{
		func() []Violation { return e.checkStatic(req, p.FacultyID, p.ClassroomID) },
		func() []Violation { return e.checkBlock(req, p.Slots) },
		func() []Violation { return e.checkBatch(x, req, p.Slots, ignore) },
		func() []Violation { return e.checkFaculty(x, p.FacultyID, p.Slots, ignore) },
		func() []Violation { return e.checkClassroom(x, p.ClassroomID, p.Slots, ignore) },
	}
	for _, check := range checks {
		if v := check(); len(v) > 0 {
			return v[0], false
		}
	}
	return Violation{}, true
}

// Score rates a placement against the soft constraints.
func (e *Engine) Score(x *ConflictIndex, req SessionRequirement, p Placement, ignore ...*Assignment) SoftScore {
	var s SoftScore
	s.Workload = e.workloadScore(x, p.FacultyID, ignore)
	s.Contiguity = e.contiguityScore(x, req, p.Slots, ignore)
	s.Consecutive = e.consecutiveScore(x, p.FacultyID, p.Slots, ignore)
	s.Total = e.weights.Workload*s.Workload + e.weights.Contiguity*s.Contiguity + e.weights.Consecutive*s.Consecutive
	return s
}

// TotalScore sums the soft score of every assignment in the index, each scored as if
// it were the last one placed.
func (e *Engine) TotalScore(x *ConflictIndex) float64 {
	var total float64
	for _, a := range x.Assignments() {
		total += e.Score(x, a.Requirement, a.Placement(), a).Total
	}
	return total
}

// Candidates enumerates the hard-legal placements of req within its static domain,
// best first. Ties fall back to faculty id, slot order and classroom id.
func (e *Engine) Candidates(x *ConflictIndex, req SessionRequirement) []Candidate {
	var out []Candidate
	e.enumerate(x, req, func(p Placement) bool {
		out = append(out, Candidate{Placement: p})
		return true
	})
	scores := make(map[string]float64)
	for i := range out {
		key := out[i].FacultyID + "@" + out[i].Slots[0].String()
		score, ok := scores[key]
		if !ok {
			score = e.Score(x, req, out[i].Placement).Total
			scores[key] = score
		}
		out[i].Score = score
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.FacultyID != b.FacultyID {
			return a.FacultyID < b.FacultyID
		}
		oa, ob := e.grid.Ordinal(a.Slots[0]), e.grid.Ordinal(b.Slots[0])
		if oa != ob {
			return oa < ob
		}
		return a.ClassroomID < b.ClassroomID
	})
	return out
}

// CountCandidates returns the number of hard-legal placements of req, stopping early
// once limit is reached when limit is positive.
func (e *Engine) CountCandidates(x *ConflictIndex, req SessionRequirement, limit int) int {
	n := 0
	e.enumerate(x, req, func(Placement) bool {
		n++
		return limit <= 0 || n < limit
	})
	return n
}

// Diagnose explains why req cannot be placed by returning the first violation of the
// placement that comes closest to being legal.
func (e *Engine) Diagnose(x *ConflictIndex, req SessionRequirement) Violation {
	faculty, rooms := req.Domain()
	best := Violation{Kind: ViolationBlockNotContiguous, Detail: fmt.Sprintf("no run of %d adjacent periods on the grid", req.Periods)}
	bestCount := -1
	for _, start := range e.grid.Slots() {
		block, ok := e.grid.Block(start, req.Periods)
		if !ok {
			continue
		}
		for _, fid := range faculty {
			for _, cid := range rooms {
				violations := e.Check(x, req, Placement{FacultyID: fid, ClassroomID: cid, Slots: block})
				if len(violations) == 0 {
					return Violation{Kind: ViolationBudgetExhausted, Detail: "a legal placement exists but the search budget ran out"}
				}
				if bestCount < 0 || len(violations) < bestCount {
					bestCount = len(violations)
					best = violations[0]
				}
			}
		}
	}
	return best
}

func (e *Engine) enumerate(x *ConflictIndex, req SessionRequirement, yield func(Placement) bool) {
	faculty, rooms := req.Domain()
	static := make(map[[2]string]bool, len(faculty)*len(rooms))
	for _, fid := range faculty {
		for _, cid := range rooms {
			static[[2]string{fid, cid}] = len(e.checkStatic(req, fid, cid)) == 0
		}
	}
	for _, start := range e.grid.Slots() {
		block, ok := e.grid.Block(start, req.Periods)
		if !ok {
			continue
		}
		if len(e.checkBatch(x, req, block, nil)) > 0 {
			continue
		}
		for _, fid := range faculty {
			if len(e.checkFaculty(x, fid, block, nil)) > 0 {
				continue
			}
			for _, cid := range rooms {
				if !static[[2]string{fid, cid}] || len(e.checkClassroom(x, cid, block, nil)) > 0 {
					continue
				}
				if !yield(Placement{FacultyID: fid, ClassroomID: cid, Slots: block}) {
					return
				}
			}
		}
	}
}

func (e *Engine) checkStatic(req SessionRequirement, facultyID, classroomID string) []Violation {
	var out []Violation
	sub, okSub := e.snap.Subject(req.SubjectID)
	batch, okBatch := e.snap.Batch(req.BatchID)
	if !okSub || !okBatch {
		return []Violation{{Kind: ViolationUnknownEntity, Detail: fmt.Sprintf("requirement %s references unknown records", req.Key())}}
	}
	if _, ok := e.snap.Faculty(facultyID); !ok {
		out = append(out, Violation{Kind: ViolationUnknownEntity, Detail: fmt.Sprintf("faculty %s does not exist", facultyID)})
	} else if !e.snap.Teaches(facultyID, req.SubjectID) {
		out = append(out, Violation{Kind: ViolationFacultyNotQualified, Detail: fmt.Sprintf("faculty %s does not teach %s", facultyID, sub.Name)})
	}
	room, ok := e.snap.Classroom(classroomID)
	if !ok {
		return append(out, Violation{Kind: ViolationUnknownEntity, Detail: fmt.Sprintf("classroom %s does not exist", classroomID)})
	}
	if sub.IsLab() != room.IsLab() {
		out = append(out, Violation{Kind: ViolationRoomTypeMismatch, Detail: fmt.Sprintf("%s room %s cannot host %s subject %s", room.Type, room.ID, sub.Type, sub.Name)})
	}
	if room.Capacity < batch.StudentCount {
		out = append(out, Violation{Kind: ViolationRoomCapacity, Detail: fmt.Sprintf("classroom %s seats %d, batch %s has %d students", room.ID, room.Capacity, batch.ID, batch.StudentCount)})
	}
	return out
}

func (e *Engine) checkBlock(req SessionRequirement, slots []TimeSlot) []Violation {
	if len(slots) == 0 {
		return []Violation{{Kind: ViolationBlockNotContiguous, Detail: "placement has no slots"}}
	}
	var out []Violation
	for _, slot := range slots {
		if !e.grid.Contains(slot) {
			out = append(out, Violation{Kind: ViolationOutsideHours, Detail: fmt.Sprintf("%s is not a teaching period", slot)})
		}
	}
	if len(slots) != req.Periods {
		out = append(out, Violation{Kind: ViolationBlockNotContiguous, Detail: fmt.Sprintf("requirement needs %d periods, got %d", req.Periods, len(slots))})
		return out
	}
	for i := 1; i < len(slots); i++ {
		if next, ok := e.grid.Next(slots[i-1]); !ok || next != slots[i] {
			out = append(out, Violation{Kind: ViolationBlockNotContiguous, Detail: fmt.Sprintf("%s does not follow %s", slots[i], slots[i-1])})
			break
		}
	}
	return out
}

func (e *Engine) checkBatch(x *ConflictIndex, req SessionRequirement, slots []TimeSlot, ignore []*Assignment) []Violation {
	var out []Violation
	for _, slot := range slots {
		if other, held := x.Holder(ResourceBatch, req.BatchID, slot, ignore...); held {
			out = append(out, Violation{Kind: ViolationBatchBusy, Detail: fmt.Sprintf("batch %s has %s at %s", req.BatchID, other.SubjectID, slot)})
		}
	}
	if e.rules.NoBackToBackLabs && req.Lab && len(slots) > 0 {
		for _, n := range e.neighbours(slots) {
			if other := e.occupant(x, ResourceBatch, req.BatchID, n, ignore); other != nil && other.Requirement.Lab {
				out = append(out, Violation{Kind: ViolationBackToBackLabs, Detail: fmt.Sprintf("batch %s has lab %s at %s", req.BatchID, other.Requirement.SubjectID, n)})
			}
		}
	}
	return out
}

func (e *Engine) checkFaculty(x *ConflictIndex, facultyID string, slots []TimeSlot, ignore []*Assignment) []Violation {
	var out []Violation
	for _, slot := range slots {
		if other, held := x.Holder(ResourceFaculty, facultyID, slot, ignore...); held {
			out = append(out, Violation{Kind: ViolationFacultyBusy, Detail: fmt.Sprintf("faculty %s teaches %s at %s", facultyID, other, slot)})
		}
	}
	if limit := e.rules.MaxHoursPerDay * 60; limit > 0 {
		added := make(map[time.Weekday]int)
		for _, slot := range slots {
			added[slot.Day] += e.grid.PeriodMinutes()
		}
		for _, day := range e.grid.Days() {
			extra, ok := added[day]
			if !ok {
				continue
			}
			if used := x.FacultyMinutesOn(facultyID, day, ignore...); used+extra > limit {
				out = append(out, Violation{Kind: ViolationDailyHours, Detail: fmt.Sprintf("faculty %s would teach %d minutes on %s, limit %d", facultyID, used+extra, DayName(day), limit)})
			}
		}
	}
	if e.rules.EscalateConsecutiveCap && e.rules.MaxConsecutiveHours > 0 {
		if run := e.consecutiveRun(x, facultyID, slots, ignore); run > e.rules.MaxConsecutiveHours*60 {
			out = append(out, Violation{Kind: ViolationConsecutiveHours, Detail: fmt.Sprintf("faculty %s would teach %d consecutive minutes", facultyID, run)})
		}
	}
	return out
}

func (e *Engine) checkClassroom(x *ConflictIndex, classroomID string, slots []TimeSlot, ignore []*Assignment) []Violation {
	var out []Violation
	for _, slot := range slots {
		if other, held := x.Holder(ResourceClassroom, classroomID, slot, ignore...); held {
			out = append(out, Violation{Kind: ViolationClassroomBusy, Detail: fmt.Sprintf("classroom %s hosts %s at %s", classroomID, other, slot)})
		}
	}
	return out
}

// workloadScore favours faculty below their department's median weekly load.
func (e *Engine) workloadScore(x *ConflictIndex, facultyID string, ignore []*Assignment) float64 {
	f, ok := e.snap.Faculty(facultyID)
	if !ok {
		return 0
	}
	peers := e.snap.DepartmentFaculty(f.Department)
	loads := make([]int, 0, len(peers))
	for _, id := range peers {
		loads = append(loads, x.FacultyWeeklyMinutes(id, ignore...))
	}
	median := medianOf(loads)
	load := float64(x.FacultyWeeklyMinutes(facultyID, ignore...))
	switch {
	case load < median:
		return 1
	case load == median:
		return 0.5
	default:
		return 0.5 * median / load
	}
}

func (e *Engine) contiguityScore(x *ConflictIndex, req SessionRequirement, slots []TimeSlot, ignore []*Assignment) float64 {
	if len(slots) == 0 || (req.Lab && e.rules.NoBackToBackLabs) {
		return 0
	}
	for _, n := range e.neighbours(slots) {
		other := e.occupant(x, ResourceBatch, req.BatchID, n, ignore)
		if other != nil && other.Requirement.SubjectID == req.SubjectID {
			return 1
		}
	}
	return 0
}

func (e *Engine) consecutiveScore(x *ConflictIndex, facultyID string, slots []TimeSlot, ignore []*Assignment) float64 {
	if e.rules.MaxConsecutiveHours <= 0 || len(slots) == 0 {
		return 1
	}
	if e.consecutiveRun(x, facultyID, slots, ignore) > e.rules.MaxConsecutiveHours*60 {
		return 0
	}
	return 1
}

// consecutiveRun is the length in minutes of the faculty member's unbroken teaching
// run containing the block.
func (e *Engine) consecutiveRun(x *ConflictIndex, facultyID string, slots []TimeSlot, ignore []*Assignment) int {
	if len(slots) == 0 {
		return 0
	}
	count := len(slots)
	for cur, ok := e.grid.Prev(slots[0]); ok; cur, ok = e.grid.Prev(cur) {
		if x.Free(ResourceFaculty, facultyID, cur, ignore...) {
			break
		}
		count++
	}
	for cur, ok := e.grid.Next(slots[len(slots)-1]); ok; cur, ok = e.grid.Next(cur) {
		if x.Free(ResourceFaculty, facultyID, cur, ignore...) {
			break
		}
		count++
	}
	return count * e.grid.PeriodMinutes()
}

// neighbours returns the slots directly before and after a block.
func (e *Engine) neighbours(slots []TimeSlot) []TimeSlot {
	var out []TimeSlot
	if prev, ok := e.grid.Prev(slots[0]); ok {
		out = append(out, prev)
	}
	if next, ok := e.grid.Next(slots[len(slots)-1]); ok {
		out = append(out, next)
	}
	return out
}

func (e *Engine) occupant(x *ConflictIndex, r Resource, id string, slot TimeSlot, ignore []*Assignment) *Assignment {
	a, ok := x.At(r, id, slot)
	if !ok || isIgnored(a, ignore) {
		return nil
	}
	return a
}

func medianOf(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int(nil), values...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

func joinViolations(vs []Violation) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		parts = append(parts, v.Error())
	}
	return strings.Join(parts, "; ")
}
