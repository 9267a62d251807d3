package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
)

type catalogue struct {
	batches  []models.Batch
	subjects []models.Subject
	faculty  []models.Faculty
	rooms    []models.Classroom
}

func (c *catalogue) Load(context.Context) (*scheduler.Snapshot, error) {
	return scheduler.NewSnapshot(c.batches, c.subjects, c.faculty, c.rooms)
}

func (c *catalogue) FindBatch(id string) (*models.Batch, error) {
	for _, b := range c.batches {
		if b.ID == id {
			b := b
			return &b, nil
		}
	}
	return nil, sql.ErrNoRows
}

type batchFinder struct{ cat *catalogue }

func (f batchFinder) FindByID(_ context.Context, id string) (*models.Batch, error) {
	return f.cat.FindBatch(id)
}

type facultyFinder struct{ cat *catalogue }

func (f facultyFinder) FindByID(_ context.Context, id string) (*models.Faculty, error) {
	for _, m := range f.cat.faculty {
		if m.ID == id {
			m := m
			return &m, nil
		}
	}
	return nil, sql.ErrNoRows
}

// campusCatalogue has one CSE batch with a theory subject and a lab subject.
func campusCatalogue() *catalogue {
	return &catalogue{
		batches: []models.Batch{{ID: "cse-2a", Name: "CSE 2A", Department: "CSE", Year: 2, Semester: 3, StudentCount: 40}},
		subjects: []models.Subject{
			{ID: "algo", Name: "Algorithms", Code: "CS201", Department: "CSE", Year: 2, Semester: 3, Type: models.SubjectTypeTheory, HoursPerWeek: 3},
			{ID: "net-lab", Name: "Networks Lab", Code: "CS207", Department: "CSE", Year: 2, Semester: 3, Type: models.SubjectTypeLab, HoursPerWeek: 2},
		},
		faculty: []models.Faculty{
			{ID: "f-ada", Name: "Ada", Department: "CSE", Subjects: []string{"Algorithms"}},
			{ID: "f-bob", Name: "Bob", Department: "CSE", Subjects: []string{"Networks Lab", "Algorithms"}},
		},
		rooms: []models.Classroom{
			{ID: "hall-1", Name: "Hall 1", Type: models.ClassroomTypeLectureHall, Capacity: 60},
			{ID: "lab-1", Name: "Lab 1", Type: models.ClassroomTypeLab, Capacity: 45},
		},
	}
}

type timetableStoreStub struct {
	mu       sync.Mutex
	replaced []string
	entries  []models.TimetableEntry
	err      error
	listErr  error
	cat      *catalogue
}

func (s *timetableStoreStub) ReplaceForBatches(_ context.Context, batchIDs []string, entries []models.TimetableEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.replaced = append([]string(nil), batchIDs...)
	replaced := make(map[string]bool, len(batchIDs))
	for _, id := range batchIDs {
		replaced[id] = true
	}
	kept := s.entries[:0:0]
	for _, e := range s.entries {
		if !replaced[e.BatchID] {
			kept = append(kept, e)
		}
	}
	s.entries = append(kept, entries...)
	return nil
}

func (s *timetableStoreStub) details(match func(models.TimetableEntry) bool) []models.TimetableEntryDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TimetableEntryDetail
	for _, e := range s.entries {
		if !match(e) {
			continue
		}
		d := models.TimetableEntryDetail{TimetableEntry: e, SubjectName: e.SubjectID, FacultyName: e.FacultyID, ClassroomName: e.ClassroomID}
		if s.cat != nil {
			if b, err := s.cat.FindBatch(e.BatchID); err == nil {
				d.BatchName = b.Name
			}
		}
		out = append(out, d)
	}
	return out
}

func (s *timetableStoreStub) ListByBatch(_ context.Context, batchID string) ([]models.TimetableEntryDetail, error) {
	return s.details(func(e models.TimetableEntry) bool { return e.BatchID == batchID }), nil
}

func (s *timetableStoreStub) ListByFaculty(_ context.Context, facultyID string) ([]models.TimetableEntryDetail, error) {
	return s.details(func(e models.TimetableEntry) bool { return e.FacultyID == facultyID }), nil
}

func (s *timetableStoreStub) ListAll(context.Context) ([]models.TimetableEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]models.TimetableEntry(nil), s.entries...), nil
}

type memoryCache struct {
	mu          sync.Mutex
	items       map[string][]byte
	invalidated []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	return raw, nil
}

func (m *memoryCache) Set(_ context.Context, key string, payload []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = payload
	return nil
}

func (m *memoryCache) Purge(_ context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	removed := 0
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
			removed++
		}
	}
	return removed, nil
}

func requireAppError(t *testing.T, err error, code string) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, code, appErr.Code, "unexpected error: %v", err)
	return appErr
}
