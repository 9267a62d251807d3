package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

type listStub[T any] struct {
	items []T
	err   error
}

func (s listStub[T]) List(context.Context) ([]T, error) {
	return s.items, s.err
}

func TestSnapshotLoaderLoad(t *testing.T) {
	cat := campusCatalogue()
	loader := NewSnapshotLoader(
		listStub[models.Batch]{items: cat.batches},
		listStub[models.Subject]{items: cat.subjects},
		listStub[models.Faculty]{items: cat.faculty},
		listStub[models.Classroom]{items: cat.rooms},
		NewMetricsService(),
	)

	snap, err := loader.Load(context.Background())
	require.NoError(t, err)
	_, ok := snap.Batch("cse-2a")
	assert.True(t, ok)
	assert.True(t, snap.Teaches("f-bob", "net-lab"))
}

func TestSnapshotLoaderRejectsInconsistentCatalogue(t *testing.T) {
	cat := campusCatalogue()
	cat.rooms[0].Capacity = 0
	loader := NewSnapshotLoader(
		listStub[models.Batch]{items: cat.batches},
		listStub[models.Subject]{items: cat.subjects},
		listStub[models.Faculty]{items: cat.faculty},
		listStub[models.Classroom]{items: cat.rooms},
		nil,
	)

	_, err := loader.Load(context.Background())
	requireAppError(t, err, "CONFIGURATION_ERROR")
}

func TestSnapshotLoaderRepositoryFailure(t *testing.T) {
	loader := NewSnapshotLoader(
		listStub[models.Batch]{},
		listStub[models.Subject]{err: errors.New("relation does not exist")},
		listStub[models.Faculty]{},
		listStub[models.Classroom]{},
		nil,
	)

	_, err := loader.Load(context.Background())
	appErr := requireAppError(t, err, "INTERNAL_ERROR")
	assert.Equal(t, "failed to load subjects", appErr.Message)
}
