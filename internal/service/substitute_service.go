package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/dto"
	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

type absenceStore interface {
	FindByID(ctx context.Context, id string) (*models.Absence, error)
	ListSubstitutedOn(ctx context.Context, date string) ([]models.Absence, error)
	MarkSubstituted(ctx context.Context, id, substituteID string) error
}

type timetableEntryLister interface {
	ListAll(ctx context.Context) ([]models.TimetableEntry, error)
}

// SubstituteService recommends cover for absent lecturers against the stored timetable.
type SubstituteService struct {
	absences   absenceStore
	timetables timetableEntryLister
	loader     snapshotLoader
	rules      scheduler.Constraints
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewSubstituteService wires the substitute finder. rules should match those used for generation.
func NewSubstituteService(absences absenceStore, timetables timetableEntryLister, loader snapshotLoader, rules scheduler.Constraints, metrics *MetricsService, logger *zap.Logger) *SubstituteService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubstituteService{absences: absences, timetables: timetables, loader: loader, rules: rules, metrics: metrics, logger: logger}
}

// FindSubstitute ranks the lecturers able to cover an absence and records the best one.
func (s *SubstituteService) FindSubstitute(ctx context.Context, absenceID string) (*dto.SubstituteResponse, error) {
	absence, err := s.absences.FindByID(ctx, absenceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "absence not found")
		}
		return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to load absence")
	}

	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.timetables.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to load timetable")
	}

	handled, err := s.absences.ListSubstitutedOn(ctx, absence.Date)
	if err != nil {
		return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to load existing substitutions")
	}
	covers := make([]models.Absence, 0, len(handled))
	for _, a := range handled {
		if a.ID != absence.ID {
			covers = append(covers, a)
		}
	}

	finder, err := scheduler.NewSubstituteFinder(snap, s.rules, entries, covers...)
	if err != nil {
		return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to rebuild timetable occupancy")
	}
	if skipped := finder.Skipped(); len(skipped) > 0 {
		s.logger.Warn("stale timetable entries or substitutions ignored", zap.Int("count", len(skipped)), zap.Strings("entries", skipped))
	}

	result, err := finder.Find(*absence)
	if err != nil {
		return nil, appErrors.Because(appErrors.ErrValidation, err, "absence date or time slot cannot be resolved")
	}
	s.metrics.ObserveSubstitute(string(result.Outcome))

	resp := &dto.SubstituteResponse{
		Success:            result.Outcome == scheduler.OutcomeSubstituted,
		Outcome:            string(result.Outcome),
		AbsenceID:          absence.ID,
		RankedCandidates:   make([]dto.RankedSubstitute, 0, len(result.Ranked)),
		RejectedCandidates: make([]dto.RejectedSubstitute, 0, len(result.Rejected)),
	}
	if result.Session != nil {
		resp.Session = &dto.ScheduledSession{
			BatchID:      result.Entry.BatchID,
			SubjectID:    result.Entry.SubjectID,
			FacultyID:    result.Entry.FacultyID,
			ClassroomID:  result.Entry.ClassroomID,
			Day:          scheduler.DayName(result.Span.Day),
			TimeSlot:     result.Entry.TimeSlot,
			SessionIndex: result.Entry.SessionIndex,
			Periods:      len(result.Session.Slots),
		}
	}
	for _, c := range result.Ranked {
		resp.RankedCandidates = append(resp.RankedCandidates, dto.RankedSubstitute{
			FacultyID:       c.FacultyID,
			Score:           c.Score,
			Workload:        c.WorkloadHours,
			DepartmentMatch: c.DepartmentMatch,
		})
	}
	for _, r := range result.Rejected {
		kinds := make([]string, 0, len(r.Violations))
		for _, v := range r.Violations {
			kinds = append(kinds, string(v.Kind))
		}
		resp.RejectedCandidates = append(resp.RejectedCandidates, dto.RejectedSubstitute{FacultyID: r.FacultyID, ViolatedHardConstraints: kinds})
	}

	if result.Recommended == nil {
		return resp, nil
	}
	recommended := result.Recommended.FacultyID
	resp.RecommendedFacultyID = &recommended
	if err := s.absences.MarkSubstituted(ctx, absence.ID, recommended); err != nil {
		return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to record substitute")
	}
	s.logger.Info("substitute assigned",
		zap.String("absence_id", absence.ID),
		zap.String("lecturer_id", absence.LecturerID),
		zap.String("substitute_id", recommended),
	)
	return resp, nil
}
