package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

func TestTimetableRepositoryReplaceForBatches(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	entries := []models.TimetableEntry{
		{BatchID: "cse-2a", SubjectID: "algo", FacultyID: "f1", ClassroomID: "hall-1", Day: "monday", TimeSlot: "09:00-10:00", Periods: 1},
		{BatchID: "cse-2a", SubjectID: "net-lab", FacultyID: "f2", ClassroomID: "lab-1", Day: "monday", TimeSlot: "13:00-15:15", SessionIndex: 0, Periods: 2},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_entries WHERE batch_id = ANY($1)")).
		WithArgs(pq.Array([]string{"cse-2a"})).
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectExec("INSERT INTO timetable_entries").
		WithArgs(sqlmock.AnyArg(), "cse-2a", "algo", "f1", "hall-1", "monday", "09:00-10:00", 0, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetable_entries").
		WithArgs(sqlmock.AnyArg(), "cse-2a", "net-lab", "f2", "lab-1", "monday", "13:00-15:15", 0, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceForBatches(context.Background(), []string{"cse-2a"}, entries))
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[1].CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryReplaceRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM timetable_entries").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO timetable_entries").WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	err := repo.ReplaceForBatches(context.Background(), []string{"cse-2a"}, []models.TimetableEntry{{BatchID: "cse-2a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert timetable entry")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListByBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	cols := []string{"id", "batch_id", "subject_id", "faculty_id", "classroom_id", "day", "time_slot", "session_index", "periods", "created_at",
		"subject_name", "subject_code", "faculty_name", "classroom_name", "batch_name"}
	rows := sqlmock.NewRows(cols).
		AddRow("e1", "cse-2a", "algo", "f1", "hall-1", "monday", "09:00-10:00", 0, 1, time.Now(), "Algorithms", "CS201", "Ada", "Hall 1", "CSE 2A")
	mock.ExpectQuery("JOIN batches b ON b.id = t.batch_id WHERE t.batch_id = \\$1 ORDER BY CASE t.day").
		WithArgs("cse-2a").
		WillReturnRows(rows)

	entries, err := repo.ListByBatch(context.Background(), "cse-2a")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Algorithms", entries[0].SubjectName)
	assert.Equal(t, "09:00-10:00", entries[0].TimeSlot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListByFacultyAndAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery("WHERE t.faculty_id = \\$1").
		WithArgs("f1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_entries ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "batch_id", "subject_id", "faculty_id", "classroom_id", "day", "time_slot", "session_index", "periods", "created_at"}).
			AddRow("e1", "cse-2a", "algo", "f1", "hall-1", "monday", "09:00-10:00", 0, 1, time.Now()))

	byFaculty, err := repo.ListByFaculty(context.Background(), "f1")
	require.NoError(t, err)
	assert.Empty(t, byFaculty)

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "f1", all[0].FacultyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
