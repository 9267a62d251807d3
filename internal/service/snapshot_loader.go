package service

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

type facultyLister interface {
	List(ctx context.Context) ([]models.Faculty, error)
}

type classroomLister interface {
	List(ctx context.Context) ([]models.Classroom, error)
}

type subjectLister interface {
	List(ctx context.Context) ([]models.Subject, error)
}

type batchLister interface {
	List(ctx context.Context) ([]models.Batch, error)
}

// SnapshotLoader reads the catalogue tables and validates them into a scheduler snapshot.
type SnapshotLoader struct {
	batches    batchLister
	subjects   subjectLister
	faculty    facultyLister
	classrooms classroomLister
	metrics    *MetricsService
}

// NewSnapshotLoader wires the catalogue readers.
func NewSnapshotLoader(batches batchLister, subjects subjectLister, faculty facultyLister, classrooms classroomLister, metrics *MetricsService) *SnapshotLoader {
	return &SnapshotLoader{batches: batches, subjects: subjects, faculty: faculty, classrooms: classrooms, metrics: metrics}
}

// Load builds a snapshot of the current catalogue.
func (l *SnapshotLoader) Load(ctx context.Context) (*scheduler.Snapshot, error) {
	start := time.Now()
	batches, err := l.batches.List(ctx)
	if err != nil {
		return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to load batches")
	}
	subjects, err := l.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to load subjects")
	}
	faculty, err := l.faculty.List(ctx)
	if err != nil {
		return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to load faculty")
	}
	classrooms, err := l.classrooms.List(ctx)
	if err != nil {
		return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to load classrooms")
	}
	l.metrics.ObserveDBQuery("snapshot", time.Since(start))

	snap, err := scheduler.NewSnapshot(batches, subjects, faculty, classrooms)
	if err != nil {
		if errors.Is(err, scheduler.ErrInvalidSnapshot) {
			return nil, appErrors.Because(appErrors.ErrConfiguration, err, "stored catalogue is inconsistent")
		}
		return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to build snapshot")
	}
	return snap, nil
}
