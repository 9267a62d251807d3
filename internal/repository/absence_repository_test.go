package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

func TestAbsenceRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "lecturer_id", "date", "time_slot", "reason", "status", "substitute_id", "created_at"}).
		AddRow("a1", "f1", "monday", "09:00-10:00", "conference", "pending", nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM absences WHERE id = $1")).
		WithArgs("a1").
		WillReturnRows(rows)

	absence, err := repo.FindByID(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, models.AbsenceStatusPending, absence.Status)
	assert.Nil(t, absence.SubstituteID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAbsenceRepositoryMarkSubstituted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE absences SET status = $2, substitute_id = $3 WHERE id = $1")).
		WithArgs("a1", "substituted", "f2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE absences").
		WithArgs("gone", "substituted", "f2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkSubstituted(context.Background(), "a1", "f2"))
	assert.ErrorIs(t, repo.MarkSubstituted(context.Background(), "gone", "f2"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAbsenceRepositoryListSubstitutedOn(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAbsenceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "lecturer_id", "date", "time_slot", "reason", "status", "substitute_id", "created_at"}).
		AddRow("a1", "f1", "2025-03-03", "09:00-10:00", "conference", "substituted", "f2", time.Now()).
		AddRow("a2", "f3", "2025-03-03", "13:00-14:00", "sick", "substituted", "f4", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM absences WHERE status = $1 AND date = $2 AND substitute_id IS NOT NULL")).
		WithArgs("substituted", "2025-03-03").
		WillReturnRows(rows)
	mock.ExpectQuery("FROM absences WHERE status").
		WithArgs("substituted", "2025-03-04").
		WillReturnError(sql.ErrConnDone)

	absences, err := repo.ListSubstitutedOn(context.Background(), "2025-03-03")
	require.NoError(t, err)
	require.Len(t, absences, 2)
	require.NotNil(t, absences[0].SubstituteID)
	assert.Equal(t, "f2", *absences[0].SubstituteID)
	assert.Equal(t, models.AbsenceStatusSubstituted, absences[1].Status)

	_, err = repo.ListSubstitutedOn(context.Background(), "2025-03-04")
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
