package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

// selectAll runs a catalogue listing query. Each table is small and read once per generation run.
func selectAll[T any](ctx context.Context, db *sqlx.DB, table, query string) ([]T, error) {
	var rows []T
	if err := db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return rows, nil
}

// SubjectRepository reads the course catalogue.
type SubjectRepository struct {
	db *sqlx.DB
}

func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

func (r *SubjectRepository) List(ctx context.Context) ([]models.Subject, error) {
	return selectAll[models.Subject](ctx, r.db, "subjects",
		`SELECT id, name, code, department, year, semester, type, hours_per_week, created_at
		   FROM subjects ORDER BY id ASC`)
}

// ClassroomRepository reads bookable rooms with their equipment tags.
type ClassroomRepository struct {
	db *sqlx.DB
}

func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

func (r *ClassroomRepository) List(ctx context.Context) ([]models.Classroom, error) {
	return selectAll[models.Classroom](ctx, r.db, "classrooms",
		`SELECT id, name, capacity, type, equipment, created_at FROM classrooms ORDER BY id ASC`)
}
