package scheduler

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Partition splits requirements into groups that share no batch, faculty or classroom
// pool. Groups are ordered by their first requirement.
func Partition(reqs []SessionRequirement) [][]SessionRequirement {
	parent := make(map[string]string)
	var find func(string) string
	find = func(k string) string {
		p, ok := parent[k]
		if !ok {
			parent[k] = k
			return k
		}
		if p == k {
			return k
		}
		root := find(p)
		parent[k] = root
		return root
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if ra < rb {
			parent[rb] = ra
		} else {
			parent[ra] = rb
		}
	}

	for _, req := range reqs {
		batchKey := "b:" + req.BatchID
		find(batchKey)
		for _, f := range req.faculty {
			union(batchKey, "f:"+f)
		}
		for _, c := range req.classrooms {
			union(batchKey, "c:"+c)
		}
	}

	groups := make(map[string][]SessionRequirement)
	var order []string
	for _, req := range reqs {
		root := find("b:" + req.BatchID)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], req)
	}
	out := make([][]SessionRequirement, 0, len(order))
	for _, root := range order {
		out = append(out, groups[root])
	}
	return out
}

// runPartitioned schedules independent partitions concurrently, each with its own
// index, and merges them through a final conflict check.
func (s *Scheduler) runPartitioned(ctx context.Context, base *ConflictIndex, reqs []SessionRequirement) (*Result, error) {
	parts := Partition(reqs)
	if len(parts) <= 1 {
		return s.solve(ctx, base, reqs), nil
	}

	results := make([]*Result, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		i, part := i, part
		g.Go(func() error {
			results[i] = s.solve(gctx, base, part)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.log.Debug("partitions scheduled", zap.Int("partitions", len(parts)))
	return s.merge(base, results)
}

func (s *Scheduler) merge(base *ConflictIndex, results []*Result) (*Result, error) {
	merged := &Result{Status: StatusComplete, Grid: s.grid, Stats: Stats{Partitions: len(results)}}
	index := base.Clone()
	for _, res := range results {
		for _, a := range res.Assignments {
			if err := index.Apply(a); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMergeConflict, err)
			}
		}
		merged.Unscheduled = append(merged.Unscheduled, res.Unscheduled...)
		merged.Stats.Nodes += res.Stats.Nodes
		merged.Stats.Backtracks += res.Stats.Backtracks
		merged.Stats.RepairIterations += res.Stats.RepairIterations
		merged.Stats.Exhausted = merged.Stats.Exhausted || res.Stats.Exhausted
	}
	if len(merged.Unscheduled) > 0 {
		merged.Status = StatusPartial
		sort.SliceStable(merged.Unscheduled, func(i, j int) bool {
			return lessKey(merged.Unscheduled[i].Requirement.Key(), merged.Unscheduled[j].Requirement.Key())
		})
	}
	merged.Assignments = index.Assignments()
	merged.Stats.Score = s.engine.TotalScore(index)
	return merged, nil
}

func lessKey(a, b RequirementKey) bool {
	if a.BatchID != b.BatchID {
		return a.BatchID < b.BatchID
	}
	if a.SubjectID != b.SubjectID {
		return a.SubjectID < b.SubjectID
	}
	return a.SessionIndex < b.SessionIndex
}
