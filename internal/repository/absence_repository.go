package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

// AbsenceRepository reads lecturer absences and records their substitution.
type AbsenceRepository struct {
	db *sqlx.DB
}

// NewAbsenceRepository constructs an AbsenceRepository.
func NewAbsenceRepository(db *sqlx.DB) *AbsenceRepository {
	return &AbsenceRepository{db: db}
}

// FindByID fetches one absence. A missing row yields sql.ErrNoRows.
func (r *AbsenceRepository) FindByID(ctx context.Context, id string) (*models.Absence, error) {
	const query = `SELECT id, lecturer_id, date, time_slot, reason, status, substitute_id, created_at FROM absences WHERE id = $1`
	var absence models.Absence
	if err := r.db.GetContext(ctx, &absence, query, id); err != nil {
		return nil, err
	}
	return &absence, nil
}

// ListSubstitutedOn returns the absences on date that already have a substitute.
func (r *AbsenceRepository) ListSubstitutedOn(ctx context.Context, date string) ([]models.Absence, error) {
	const query = `SELECT id, lecturer_id, date, time_slot, reason, status, substitute_id, created_at FROM absences WHERE status = $1 AND date = $2 AND substitute_id IS NOT NULL ORDER BY created_at, id`
	var absences []models.Absence
	if err := r.db.SelectContext(ctx, &absences, query, string(models.AbsenceStatusSubstituted), date); err != nil {
		return nil, fmt.Errorf("list substituted absences: %w", err)
	}
	return absences, nil
}

// MarkSubstituted stores the chosen substitute and flips the status.
func (r *AbsenceRepository) MarkSubstituted(ctx context.Context, id, substituteID string) error {
	const query = `UPDATE absences SET status = $2, substitute_id = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, string(models.AbsenceStatusSubstituted), substituteID)
	if err != nil {
		return fmt.Errorf("mark absence substituted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark absence substituted: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
