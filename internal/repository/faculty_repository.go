package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

const facultyColumns = "id, name, email, department, subjects, created_at"

// FacultyRepository reads lecturers and their expertise.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs a FacultyRepository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

// List returns every lecturer ordered by id.
func (r *FacultyRepository) List(ctx context.Context) ([]models.Faculty, error) {
	return selectAll[models.Faculty](ctx, r.db, "faculty", fmt.Sprintf("SELECT %s FROM faculty ORDER BY id ASC", facultyColumns))
}

// FindByID fetches one lecturer. A missing row yields sql.ErrNoRows.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	query := fmt.Sprintf("SELECT %s FROM faculty WHERE id = $1", facultyColumns)
	var f models.Faculty
	if err := r.db.GetContext(ctx, &f, query, id); err != nil {
		return nil, err
	}
	return &f, nil
}
