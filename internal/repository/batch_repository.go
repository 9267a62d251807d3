package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

const batchColumns = "id, name, department, year, semester, student_count, created_at"

// BatchRepository reads student cohorts.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs a BatchRepository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// List returns every batch ordered by id.
func (r *BatchRepository) List(ctx context.Context) ([]models.Batch, error) {
	return selectAll[models.Batch](ctx, r.db, "batches", fmt.Sprintf("SELECT %s FROM batches ORDER BY id ASC", batchColumns))
}

// FindByID fetches one batch. A missing row yields sql.ErrNoRows.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	query := fmt.Sprintf("SELECT %s FROM batches WHERE id = $1", batchColumns)
	var b models.Batch
	if err := r.db.GetContext(ctx, &b, query, id); err != nil {
		return nil, err
	}
	return &b, nil
}
