package scheduler

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	repairStaleRounds = 20
	scoreEpsilon      = 1e-9
)

type swapProbe struct {
	a, b  *Assignment
	delta float64
	legal bool
}

// repair hill-climbs over pairwise slot swaps of a complete timetable. Each restart
// begins from the search result with its own seeded random sequence; the best scoring
// index across restarts is returned together with the number of accepted swaps.
func (s *Scheduler) repair(ctx context.Context, base *ConflictIndex) (*ConflictIndex, int) {
	opts := s.opts.Repair
	var deadline time.Time
	if opts.TimeLimit > 0 {
		deadline = time.Now().Add(opts.TimeLimit)
	}
	expired := func() bool {
		return ctx.Err() != nil || (!deadline.IsZero() && time.Now().After(deadline))
	}

	best := base
	bestScore := s.engine.TotalScore(base)
	accepted := 0
	for restart := 0; restart < opts.Restarts && !expired(); restart++ {
		rng := rand.New(rand.NewSource(s.opts.Seed + int64(restart)))
		work := base.Clone()
		score := s.engine.TotalScore(work)
		stale := 0
		for it := 0; (opts.MaxIterations <= 0 || it < opts.MaxIterations) && stale < repairStaleRounds; it++ {
			if expired() {
				break
			}
			probe, ok := s.bestProbe(ctx, work, s.drawSwaps(rng, work.Assignments(), opts.Probes))
			if !ok {
				stale++
				continue
			}
			next, committed := s.commitSwap(work, probe, score)
			if !committed {
				stale++
				continue
			}
			score = next
			stale = 0
			accepted++
		}
		if score > bestScore+scoreEpsilon {
			best, bestScore = work, score
		}
		s.log.Debug("repair restart finished",
			zap.Int("restart", restart),
			zap.Float64("score", score),
			zap.Float64("best", bestScore),
		)
	}
	return best, accepted
}

// drawSwaps picks up to n random pairs of assignments that could trade slots.
func (s *Scheduler) drawSwaps(rng *rand.Rand, list []*Assignment, n int) []swapProbe {
	if len(list) < 2 {
		return nil
	}
	probes := make([]swapProbe, 0, n)
	for attempts := 0; len(probes) < n && attempts < n*4; attempts++ {
		a := list[rng.Intn(len(list))]
		b := list[rng.Intn(len(list))]
		if a == b || a.Requirement.Periods != b.Requirement.Periods || slotsOverlap(a.Slots, b.Slots) {
			continue
		}
		probes = append(probes, swapProbe{a: a, b: b})
	}
	return probes
}

// bestProbe evaluates the swaps concurrently against the read-only index and returns
// the legal one with the largest local gain.
func (s *Scheduler) bestProbe(ctx context.Context, x *ConflictIndex, probes []swapProbe) (swapProbe, bool) {
	if len(probes) == 0 {
		return swapProbe{}, false
	}
	g, _ := errgroup.WithContext(ctx)
	for i := range probes {
		i := i
		g.Go(func() error {
			probes[i] = s.evaluateSwap(x, probes[i])
			return nil
		})
	}
	// evaluateSwap never fails; Wait only joins the probes.
	_ = g.Wait()

	found := -1
	for i, p := range probes {
		if !p.legal || p.delta <= scoreEpsilon {
			continue
		}
		if found < 0 || p.delta > probes[found].delta {
			found = i
		}
	}
	if found < 0 {
		return swapProbe{}, false
	}
	return probes[found], true
}

func (s *Scheduler) evaluateSwap(x *ConflictIndex, p swapProbe) swapProbe {
	movedA := Placement{FacultyID: p.a.FacultyID, ClassroomID: p.a.ClassroomID, Slots: p.b.Slots}
	movedB := Placement{FacultyID: p.b.FacultyID, ClassroomID: p.b.ClassroomID, Slots: p.a.Slots}
	if _, ok := s.engine.Legal(x, p.a.Requirement, movedA, p.a, p.b); !ok {
		return p
	}
	if _, ok := s.engine.Legal(x, p.b.Requirement, movedB, p.a, p.b); !ok {
		return p
	}
	before := s.engine.Score(x, p.a.Requirement, p.a.Placement(), p.a).Total +
		s.engine.Score(x, p.b.Requirement, p.b.Placement(), p.b).Total
	after := s.engine.Score(x, p.a.Requirement, movedA, p.a, p.b).Total +
		s.engine.Score(x, p.b.Requirement, movedB, p.a, p.b).Total
	p.legal = true
	p.delta = after - before
	return p
}

// commitSwap applies the swap to x, re-verifying every hard constraint with the other
// half in place, and keeps it only when the true total score improves.
func (s *Scheduler) commitSwap(x *ConflictIndex, p swapProbe, current float64) (float64, bool) {
	movedA := newAssignment(p.a.Requirement, Placement{FacultyID: p.a.FacultyID, ClassroomID: p.a.ClassroomID, Slots: p.b.Slots})
	movedB := newAssignment(p.b.Requirement, Placement{FacultyID: p.b.FacultyID, ClassroomID: p.b.ClassroomID, Slots: p.a.Slots})

	revert := func(applied ...*Assignment) {
		for _, a := range applied {
			_ = x.Remove(a)
		}
		_ = x.Apply(p.a)
		_ = x.Apply(p.b)
	}

	if err := x.Remove(p.a); err != nil {
		return current, false
	}
	if err := x.Remove(p.b); err != nil {
		_ = x.Apply(p.a)
		return current, false
	}
	if _, ok := s.engine.Legal(x, movedA.Requirement, movedA.Placement()); !ok {
		revert()
		return current, false
	}
	if err := x.Apply(movedA); err != nil {
		revert()
		return current, false
	}
	if _, ok := s.engine.Legal(x, movedB.Requirement, movedB.Placement()); !ok {
		revert(movedA)
		return current, false
	}
	if err := x.Apply(movedB); err != nil {
		revert(movedA)
		return current, false
	}
	// movedA was checked before movedB existed; constraints spanning both need a recheck.
	if _, ok := s.engine.Legal(x, movedA.Requirement, movedA.Placement(), movedA); !ok {
		revert(movedA, movedB)
		return current, false
	}
	score := s.engine.TotalScore(x)
	if score <= current+scoreEpsilon {
		revert(movedA, movedB)
		return current, false
	}
	return score, true
}

func slotsOverlap(a, b []TimeSlot) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
