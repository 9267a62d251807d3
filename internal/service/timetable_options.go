package service

import (
	"time"

	"github.com/noah-isme/campus-timetable-api/internal/dto"
	"github.com/noah-isme/campus-timetable-api/internal/scheduler"
	"github.com/noah-isme/campus-timetable-api/pkg/config"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

// SchedulerDefaults turns process configuration into the engine options every request starts from.
func SchedulerDefaults(cfg config.SchedulerConfig) scheduler.Options {
	opts := scheduler.DefaultOptions()
	if cfg.MaxNodes > 0 {
		opts.Budget.MaxNodes = cfg.MaxNodes
	}
	if cfg.TimeBudget > 0 {
		opts.Budget.TimeLimit = cfg.TimeBudget
	}
	if cfg.RepairBudget > 0 {
		opts.Repair.TimeLimit = cfg.RepairBudget
	}
	if cfg.RepairRestarts > 0 {
		opts.Repair.Restarts = cfg.RepairRestarts
	}
	if cfg.Seed != 0 {
		opts.Seed = cfg.Seed
	}
	opts.Partitioned = cfg.ParallelPartitions
	return opts
}

// applyConstraints overlays request overrides on the defaults.
func applyConstraints(base scheduler.Options, c *dto.TimetableConstraints) (scheduler.Options, error) {
	opts := base
	opts.Constraints.Days = append([]time.Weekday(nil), base.Constraints.Days...)
	if c == nil {
		return opts, nil
	}

	rules := &opts.Constraints
	setString(&rules.StartTime, c.StartTime)
	setString(&rules.EndTime, c.EndTime)
	setInt(&rules.PeriodDuration, c.PeriodDuration)
	setInt(&rules.BreakDuration, c.BreakDuration)
	setString(&rules.LunchBreakStart, c.LunchBreakStart)
	setInt(&rules.LunchBreakDuration, c.LunchBreakDuration)
	setInt(&rules.MaxHoursPerDay, c.MaxHoursPerDay)
	setBool(&rules.NoBackToBackLabs, c.NoBackToBackLabs)
	setInt(&rules.MaxConsecutiveHours, c.MaxConsecutiveHours)
	setInt(&rules.LabBlockPeriods, c.LabBlockPeriods)
	setBool(&rules.EscalateConsecutiveCap, c.EscalateConsecutiveCap)

	if len(c.Days) > 0 {
		days := make([]time.Weekday, 0, len(c.Days))
		for _, raw := range c.Days {
			d, err := scheduler.ParseDay(raw)
			if err != nil {
				return opts, appErrors.Because(appErrors.ErrValidation, err, "invalid day in constraints")
			}
			days = append(days, d)
		}
		rules.Days = days
	}

	if w := c.SoftWeights; w != nil {
		setFloat(&opts.Weights.Workload, w.Workload)
		setFloat(&opts.Weights.Contiguity, w.Contiguity)
		setFloat(&opts.Weights.Consecutive, w.Consecutive)
	}

	setInt(&opts.Budget.MaxNodes, c.MaxNodes)
	if c.TimeBudgetMS != nil {
		opts.Budget.TimeLimit = time.Duration(*c.TimeBudgetMS) * time.Millisecond
	}
	if r := c.Repair; r != nil {
		setBool(&opts.Repair.Enabled, r.Enabled)
		setInt(&opts.Repair.Restarts, r.Restarts)
		setInt(&opts.Repair.MaxIterations, r.MaxIterations)
		if r.TimeBudgetMS != nil {
			opts.Repair.TimeLimit = time.Duration(*r.TimeBudgetMS) * time.Millisecond
		}
	}
	if c.Seed != nil {
		opts.Seed = *c.Seed
	}
	setBool(&opts.Partitioned, c.Partitioned)
	return opts, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
