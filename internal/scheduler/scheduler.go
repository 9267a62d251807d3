package scheduler

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// RequirementState tracks a requirement through the search.
type RequirementState int

const (
	StateUnscheduled RequirementState = iota
	StateTentative
	StateCommitted
)

func (s RequirementState) String() string {
	switch s {
	case StateTentative:
		return "tentative"
	case StateCommitted:
		return "committed"
	default:
		return "unscheduled"
	}
}

// Status summarises a run outcome.
type Status string

const (
	StatusComplete Status = "COMPLETE"
	StatusPartial  Status = "PARTIAL"
)

// Unscheduled is a requirement the run could not place, with the reason its closest
// candidate was rejected.
type Unscheduled struct {
	Requirement SessionRequirement
	Reason      Violation
}

// Stats describes the work done by a run.
type Stats struct {
	Nodes            int
	Backtracks       int
	Exhausted        bool
	Score            float64
	RepairIterations int
	Duration         time.Duration
	Partitions       int
}

// Result is the outcome of a scheduling run. Every compiled requirement appears in
// exactly one of Assignments and Unscheduled.
type Result struct {
	Status      Status
	Assignments []*Assignment
	Unscheduled []Unscheduled
	Stats       Stats
	Grid        *Grid
}

// Complete reports whether every requirement was placed.
func (r *Result) Complete() bool {
	return r.Status == StatusComplete
}

// Scheduler assigns session requirements to faculty, classrooms and slots.
type Scheduler struct {
	snap   *Snapshot
	grid   *Grid
	engine *Engine
	opts   Options
	log    *zap.Logger
}

// New prepares a scheduler over a snapshot.
func New(snap *Snapshot, opts Options) (*Scheduler, error) {
	if snap == nil {
		return nil, ErrInvalidSnapshot
	}
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	grid, err := NewGrid(opts.Constraints)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		snap:   snap,
		grid:   grid,
		engine: NewEngine(snap, grid, opts.Constraints, opts.Weights),
		opts:   opts,
		log:    opts.Logger,
	}, nil
}

// Grid returns the slot grid the scheduler places sessions on.
func (s *Scheduler) Grid() *Grid {
	return s.grid
}

// Engine returns the constraint engine used by the scheduler.
func (s *Scheduler) Engine() *Engine {
	return s.engine
}

// Run compiles the requirements of the selected batches and searches for a timetable.
// A *ConfigurationError is returned before any search when a requirement can never be
// placed. Budget exhaustion is not an error; the result is then PARTIAL.
func (s *Scheduler) Run(ctx context.Context, batchIDs []string) (*Result, error) {
	reqs, err := CompileRequirements(s.snap, batchIDs, s.opts.Constraints)
	if err != nil {
		return nil, err
	}
	base := s.reservedIndex(batchIDs)
	started := time.Now()
	var res *Result
	if s.opts.Partitioned {
		res, err = s.runPartitioned(ctx, base, reqs)
	} else {
		res = s.solve(ctx, base, reqs)
	}
	if err != nil {
		return nil, err
	}
	res.Stats.Duration = time.Since(started)

	fields := []zap.Field{
		zap.Int("requirements", len(reqs)),
		zap.Int("scheduled", len(res.Assignments)),
		zap.Int("unscheduled", len(res.Unscheduled)),
		zap.Int("nodes", res.Stats.Nodes),
		zap.Int("backtracks", res.Stats.Backtracks),
		zap.Float64("score", res.Stats.Score),
		zap.Duration("duration", res.Stats.Duration),
	}
	if res.Stats.Exhausted {
		s.log.Warn("scheduler budget exhausted", fields...)
	} else {
		s.log.Info("scheduler run finished", fields...)
	}
	return res, nil
}

// reservedIndex builds the starting occupancy of a run: every reservation that does
// not belong to one of the batches being scheduled.
func (s *Scheduler) reservedIndex(batchIDs []string) *ConflictIndex {
	x := NewConflictIndex(s.grid.PeriodMinutes())
	running := make(map[string]bool, len(batchIDs))
	for _, id := range batchIDs {
		running[id] = true
	}
	for _, r := range s.opts.Reservations {
		if !running[r.Key.BatchID] {
			x.Reserve(r)
		}
	}
	return x
}

// solve runs search, completion and repair over one set of requirements, starting
// from a copy of base.
func (s *Scheduler) solve(ctx context.Context, base *ConflictIndex, reqs []SessionRequirement) *Result {
	srch := newSearch(s, base, reqs)
	srch.run(ctx)

	index := srch.index
	if !srch.complete() {
		index = srch.restoreBest()
	}
	unscheduled := s.complete(index, reqs)

	res := &Result{
		Status: StatusComplete,
		Grid:   s.grid,
		Stats: Stats{
			Nodes:      srch.nodes,
			Backtracks: srch.backtracks,
			Exhausted:  srch.exhausted,
			Partitions: 1,
		},
	}
	if len(unscheduled) > 0 {
		res.Status = StatusPartial
		res.Unscheduled = unscheduled
	} else if s.opts.Repair.Enabled {
		var iterations int
		index, iterations = s.repair(ctx, index)
		res.Stats.RepairIterations = iterations
	}
	res.Assignments = index.Assignments()
	res.Stats.Score = s.engine.TotalScore(index)
	return res
}

// complete greedily places whatever the search left unplaced and explains the rest.
func (s *Scheduler) complete(x *ConflictIndex, reqs []SessionRequirement) []Unscheduled {
	placed := make(map[RequirementKey]bool, x.Len())
	for _, a := range x.Assignments() {
		placed[a.Requirement.Key()] = true
	}
	var pending []SessionRequirement
	for _, req := range reqs {
		if placed[req.Key()] {
			continue
		}
		cands := s.engine.Candidates(x, req)
		if len(cands) > 0 {
			if err := x.Apply(newAssignment(req, cands[0].Placement)); err == nil {
				continue
			}
		}
		pending = append(pending, req)
	}
	out := make([]Unscheduled, 0, len(pending))
	for _, req := range pending {
		out = append(out, Unscheduled{Requirement: req, Reason: s.engine.Diagnose(x, req)})
	}
	return out
}

type frame struct {
	req     int
	cands   []Candidate
	next    int
	applied *Assignment
}

// search is the explicit-stack depth-first backtracking state of one run.
type search struct {
	s       *Scheduler
	reqs    []SessionRequirement
	base    *ConflictIndex
	index   *ConflictIndex
	state   []RequirementState
	counts  []int
	dirty   map[int]bool
	related [][]int
	stack   []*frame
	best    []*Assignment

	nodes      int
	backtracks int
	exhausted  bool
	deadline   time.Time
}

func newSearch(s *Scheduler, base *ConflictIndex, reqs []SessionRequirement) *search {
	srch := &search{
		s:       s,
		reqs:    reqs,
		base:    base,
		index:   base.Clone(),
		state:   make([]RequirementState, len(reqs)),
		counts:  make([]int, len(reqs)),
		dirty:   make(map[int]bool, len(reqs)),
		related: relatedRequirements(reqs),
	}
	for i := range reqs {
		srch.dirty[i] = true
	}
	return srch
}

func (srch *search) run(ctx context.Context) {
	if limit := srch.s.opts.Budget.TimeLimit; limit > 0 {
		srch.deadline = time.Now().Add(limit)
	}
	if len(srch.reqs) == 0 {
		return
	}
	descend := true
	for {
		next := -1
		if descend {
			if next = srch.selectNext(); next < 0 {
				for i := range srch.state {
					srch.state[i] = StateCommitted
				}
				return
			}
		}
		if srch.outOfBudget(ctx) {
			srch.exhausted = true
			return
		}
		if descend {
			srch.stack = append(srch.stack, &frame{req: next, cands: srch.s.engine.Candidates(srch.index, srch.reqs[next])})
		}
		if len(srch.stack) == 0 {
			// every branch failed; no complete timetable exists for these inputs
			return
		}
		descend = srch.advance()
	}
}

// advance tries the next candidate of the top frame. It returns true when a candidate
// was applied and survived forward checking, false after undoing or popping a frame.
func (srch *search) advance() bool {
	top := srch.stack[len(srch.stack)-1]
	if top.applied != nil {
		srch.undo(top)
	}
	if top.next >= len(top.cands) {
		srch.stack = srch.stack[:len(srch.stack)-1]
		srch.state[top.req] = StateUnscheduled
		return false
	}
	cand := top.cands[top.next]
	top.next++
	a := newAssignment(srch.reqs[top.req], cand.Placement)
	if err := srch.index.Apply(a); err != nil {
		return false
	}
	srch.nodes++
	top.applied = a
	srch.state[top.req] = StateTentative
	srch.markRelated(top.req)
	if len(srch.stack) > len(srch.best) {
		srch.best = srch.appliedMoves()
	}
	return srch.refresh(true)
}

func (srch *search) undo(f *frame) {
	// Remove only fails when the assignment is not applied, which the frame rules out.
	_ = srch.index.Remove(f.applied)
	f.applied = nil
	srch.state[f.req] = StateUnscheduled
	srch.markRelated(f.req)
	srch.backtracks++
}

// refresh recomputes the candidate counts of dirty requirements. With failFast it
// stops at the first requirement left without a legal placement.
func (srch *search) refresh(failFast bool) bool {
	ok := true
	for _, i := range srch.dirtyOrder() {
		if srch.state[i] != StateUnscheduled {
			delete(srch.dirty, i)
			continue
		}
		srch.counts[i] = srch.s.engine.CountCandidates(srch.index, srch.reqs[i], 0)
		delete(srch.dirty, i)
		if srch.counts[i] == 0 {
			ok = false
			if failFast {
				return false
			}
		}
	}
	return ok
}

// selectNext picks the unscheduled requirement with the fewest legal placements.
// Ties prefer multi-period and lab blocks, then smaller static domains, then order.
func (srch *search) selectNext() int {
	srch.refresh(false)
	best := -1
	for i := range srch.reqs {
		if srch.state[i] != StateUnscheduled {
			continue
		}
		if best < 0 || srch.harder(i, best) {
			best = i
		}
	}
	return best
}

func (srch *search) harder(i, j int) bool {
	if srch.counts[i] != srch.counts[j] {
		return srch.counts[i] < srch.counts[j]
	}
	a, b := srch.reqs[i], srch.reqs[j]
	if a.Periods != b.Periods {
		return a.Periods > b.Periods
	}
	if a.Lab != b.Lab {
		return a.Lab
	}
	if a.domainSize() != b.domainSize() {
		return a.domainSize() < b.domainSize()
	}
	return i < j
}

func (srch *search) markRelated(i int) {
	for _, j := range srch.related[i] {
		if srch.state[j] == StateUnscheduled {
			srch.dirty[j] = true
		}
	}
}

func (srch *search) dirtyOrder() []int {
	out := make([]int, 0, len(srch.dirty))
	for i := range srch.dirty {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (srch *search) outOfBudget(ctx context.Context) bool {
	if max := srch.s.opts.Budget.MaxNodes; max > 0 && srch.nodes >= max {
		return true
	}
	if !srch.deadline.IsZero() && time.Now().After(srch.deadline) {
		return true
	}
	return ctx.Err() != nil
}

func (srch *search) complete() bool {
	for _, st := range srch.state {
		if st != StateCommitted {
			return false
		}
	}
	return true
}

func (srch *search) appliedMoves() []*Assignment {
	out := make([]*Assignment, 0, len(srch.stack))
	for _, f := range srch.stack {
		if f.applied != nil {
			out = append(out, f.applied)
		}
	}
	return out
}

// restoreBest rebuilds an index holding the deepest consistent state reached.
func (srch *search) restoreBest() *ConflictIndex {
	x := srch.base.Clone()
	for _, a := range srch.best {
		// best was a consistent stack prefix, so Apply cannot collide.
		_ = x.Apply(a)
	}
	return x
}

// relatedRequirements links requirements that compete for the same batch, faculty
// or classroom and so affect each other's candidate sets.
func relatedRequirements(reqs []SessionRequirement) [][]int {
	byBatch := make(map[string][]int)
	byFaculty := make(map[string][]int)
	byRoom := make(map[string][]int)
	for i, req := range reqs {
		byBatch[req.BatchID] = append(byBatch[req.BatchID], i)
		for _, f := range req.faculty {
			byFaculty[f] = append(byFaculty[f], i)
		}
		for _, c := range req.classrooms {
			byRoom[c] = append(byRoom[c], i)
		}
	}
	out := make([][]int, len(reqs))
	for i, req := range reqs {
		seen := map[int]bool{i: true}
		add := func(ids []int) {
			for _, j := range ids {
				if !seen[j] {
					seen[j] = true
					out[i] = append(out[i], j)
				}
			}
		}
		add(byBatch[req.BatchID])
		for _, f := range req.faculty {
			add(byFaculty[f])
		}
		for _, c := range req.classrooms {
			add(byRoom[c])
		}
		sort.Ints(out[i])
	}
	return out
}
