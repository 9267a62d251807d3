package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

const timetableDetailSelect = `SELECT t.id, t.batch_id, t.subject_id, t.faculty_id, t.classroom_id, t.day, t.time_slot, t.session_index, t.periods, t.created_at,
	s.name AS subject_name, s.code AS subject_code, f.name AS faculty_name, c.name AS classroom_name, b.name AS batch_name
FROM timetable_entries t
JOIN subjects s ON s.id = t.subject_id
JOIN faculty f ON f.id = t.faculty_id
JOIN classrooms c ON c.id = t.classroom_id
JOIN batches b ON b.id = t.batch_id`

const timetableOrder = `ORDER BY CASE t.day WHEN 'monday' THEN 1 WHEN 'tuesday' THEN 2 WHEN 'wednesday' THEN 3 WHEN 'thursday' THEN 4 WHEN 'friday' THEN 5 WHEN 'saturday' THEN 6 ELSE 7 END, t.time_slot ASC, t.batch_id ASC`

// TimetableRepository persists generated timetable entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// ReplaceForBatches deletes the existing entries of batchIDs and inserts entries in one transaction.
func (r *TimetableRepository) ReplaceForBatches(ctx context.Context, batchIDs []string, entries []models.TimetableEntry) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace timetable: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_entries WHERE batch_id = ANY($1)`, pq.Array(batchIDs)); err != nil {
		return fmt.Errorf("delete timetable entries: %w", err)
	}
	if err = r.insertEntries(ctx, tx, entries); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace timetable: %w", err)
	}
	return nil
}

func (r *TimetableRepository) insertEntries(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error {
	const query = `INSERT INTO timetable_entries (id, batch_id, subject_id, faculty_id, classroom_id, day, time_slot, session_index, periods, created_at)
VALUES (:id, :batch_id, :subject_id, :faculty_id, :classroom_id, :day, :time_slot, :session_index, :periods, :created_at)`
	now := time.Now().UTC()
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, exec, query, entry); err != nil {
			return fmt.Errorf("insert timetable entry: %w", err)
		}
	}
	return nil
}

// ListByBatch returns the enriched entries of one batch in weekly order.
func (r *TimetableRepository) ListByBatch(ctx context.Context, batchID string) ([]models.TimetableEntryDetail, error) {
	query := timetableDetailSelect + " WHERE t.batch_id = $1 " + timetableOrder
	var entries []models.TimetableEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, batchID); err != nil {
		return nil, fmt.Errorf("list batch timetable: %w", err)
	}
	return entries, nil
}

// ListByFaculty returns the enriched entries taught by one lecturer in weekly order.
func (r *TimetableRepository) ListByFaculty(ctx context.Context, facultyID string) ([]models.TimetableEntryDetail, error) {
	query := timetableDetailSelect + " WHERE t.faculty_id = $1 " + timetableOrder
	var entries []models.TimetableEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, facultyID); err != nil {
		return nil, fmt.Errorf("list faculty timetable: %w", err)
	}
	return entries, nil
}

// ListAll returns every persisted entry, used to rebuild occupancy for substitutions.
func (r *TimetableRepository) ListAll(ctx context.Context) ([]models.TimetableEntry, error) {
	const query = `SELECT id, batch_id, subject_id, faculty_id, classroom_id, day, time_slot, session_index, periods, created_at FROM timetable_entries ORDER BY id ASC`
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}
