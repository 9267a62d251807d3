package scheduler

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Constraints describes the working week and the timetable rules for a run.
type Constraints struct {
	StartTime              string
	EndTime                string
	PeriodDuration         int
	BreakDuration          int
	LunchBreakStart        string
	LunchBreakDuration     int
	MaxHoursPerDay         int
	NoBackToBackLabs       bool
	MaxConsecutiveHours    int
	Days                   []time.Weekday
	LabBlockPeriods        int
	EscalateConsecutiveCap bool
}

// DefaultConstraints mirrors the defaults used by the timetable administrators.
func DefaultConstraints() Constraints {
	return Constraints{
		StartTime:           "09:00",
		EndTime:             "17:00",
		PeriodDuration:      60,
		BreakDuration:       15,
		LunchBreakStart:     "12:00",
		LunchBreakDuration:  60,
		MaxHoursPerDay:      6,
		NoBackToBackLabs:    true,
		MaxConsecutiveHours: 3,
		Days: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
		LabBlockPeriods: 1,
	}
}

// SoftWeights scales each soft constraint before the scores are summed.
type SoftWeights struct {
	Workload    float64
	Contiguity  float64
	Consecutive float64
}

// DefaultSoftWeights weighs every soft constraint equally.
func DefaultSoftWeights() SoftWeights {
	return SoftWeights{Workload: 1, Contiguity: 1, Consecutive: 1}
}

// Budget bounds the backtracking search. Zero values disable the bound. Only the node
// bound keeps runs reproducible; a time limit trades that for a latency ceiling.
type Budget struct {
	MaxNodes  int
	TimeLimit time.Duration
}

// RepairOptions configures the local-search pass run on complete schedules.
type RepairOptions struct {
	Enabled       bool
	Restarts      int
	MaxIterations int
	Probes        int
	TimeLimit     time.Duration
}

// Options configures a Scheduler. Reservations are sessions already fixed outside the
// run; those belonging to a batch being scheduled are dropped since the run replaces them.
type Options struct {
	Constraints  Constraints
	Weights      SoftWeights
	Budget       Budget
	Repair       RepairOptions
	Seed         int64
	Partitioned  bool
	Reservations []Reservation
	Logger       *zap.Logger
}

// DefaultOptions returns options suitable for interactive generation requests. They
// bound work by node and iteration counts only, so equal inputs give equal output.
func DefaultOptions() Options {
	return Options{
		Constraints: DefaultConstraints(),
		Weights:     DefaultSoftWeights(),
		Budget:      Budget{MaxNodes: 50000},
		Repair: RepairOptions{
			Enabled:       true,
			Restarts:      3,
			MaxIterations: 200,
			Probes:        16,
		},
		Seed: 1,
	}
}

func (o *Options) normalize() error {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Constraints.LabBlockPeriods <= 0 {
		o.Constraints.LabBlockPeriods = 1
	}
	if len(o.Constraints.Days) == 0 {
		o.Constraints.Days = DefaultConstraints().Days
	}
	if o.Weights.Workload < 0 || o.Weights.Contiguity < 0 || o.Weights.Consecutive < 0 {
		return fmt.Errorf("%w: soft weights must not be negative", ErrInvalidOptions)
	}
	if o.Budget.MaxNodes < 0 || o.Budget.TimeLimit < 0 {
		return fmt.Errorf("%w: budget must not be negative", ErrInvalidOptions)
	}
	if o.Constraints.MaxHoursPerDay < 0 || o.Constraints.MaxConsecutiveHours < 0 {
		return fmt.Errorf("%w: hour caps must not be negative", ErrInvalidOptions)
	}
	if o.Repair.Probes <= 0 {
		o.Repair.Probes = 8
	}
	if o.Repair.Restarts <= 0 {
		o.Repair.Restarts = 1
	}
	return nil
}
