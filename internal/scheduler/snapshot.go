package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

// Snapshot is the read-only view of the entities one scheduling run works against.
type Snapshot struct {
	batches    map[string]models.Batch
	subjects   map[string]models.Subject
	faculty    map[string]models.Faculty
	classrooms map[string]models.Classroom

	batchIDs     []string
	subjectIDs   []string
	facultyIDs   []string
	classroomIDs []string

	expertise    map[string]map[string]bool
	departmentOf map[string][]string
}

// NewSnapshot validates and indexes entity records. The inputs are copied.
func NewSnapshot(batches []models.Batch, subjects []models.Subject, faculty []models.Faculty, classrooms []models.Classroom) (*Snapshot, error) {
	s := &Snapshot{
		batches:      make(map[string]models.Batch, len(batches)),
		subjects:     make(map[string]models.Subject, len(subjects)),
		faculty:      make(map[string]models.Faculty, len(faculty)),
		classrooms:   make(map[string]models.Classroom, len(classrooms)),
		expertise:    make(map[string]map[string]bool, len(faculty)),
		departmentOf: make(map[string][]string),
	}
	var problems []string

	for _, b := range batches {
		switch {
		case b.ID == "":
			problems = append(problems, "batch with empty id")
		case s.batches[b.ID].ID != "":
			problems = append(problems, fmt.Sprintf("duplicate batch %s", b.ID))
		case b.StudentCount <= 0:
			problems = append(problems, fmt.Sprintf("batch %s has non-positive student_count", b.ID))
		default:
			s.batches[b.ID] = b
		}
	}
	for _, sub := range subjects {
		switch {
		case sub.ID == "":
			problems = append(problems, "subject with empty id")
		case s.subjects[sub.ID].ID != "":
			problems = append(problems, fmt.Sprintf("duplicate subject %s", sub.ID))
		case sub.HoursPerWeek <= 0:
			problems = append(problems, fmt.Sprintf("subject %s has non-positive hours_per_week", sub.ID))
		case sub.Type != models.SubjectTypeTheory && sub.Type != models.SubjectTypeLab:
			problems = append(problems, fmt.Sprintf("subject %s has unknown type %q", sub.ID, sub.Type))
		default:
			s.subjects[sub.ID] = sub
		}
	}
	for _, room := range classrooms {
		switch {
		case room.ID == "":
			problems = append(problems, "classroom with empty id")
		case s.classrooms[room.ID].ID != "":
			problems = append(problems, fmt.Sprintf("duplicate classroom %s", room.ID))
		case room.Capacity <= 0:
			problems = append(problems, fmt.Sprintf("classroom %s has non-positive capacity", room.ID))
		case room.Type != models.ClassroomTypeLectureHall && room.Type != models.ClassroomTypeLab && room.Type != models.ClassroomTypeSeminarRoom:
			problems = append(problems, fmt.Sprintf("classroom %s has unknown type %q", room.ID, room.Type))
		default:
			s.classrooms[room.ID] = room
		}
	}
	for _, f := range faculty {
		switch {
		case f.ID == "":
			problems = append(problems, "faculty with empty id")
		case s.faculty[f.ID].ID != "":
			problems = append(problems, fmt.Sprintf("duplicate faculty %s", f.ID))
		default:
			s.faculty[f.ID] = f
		}
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSnapshot, strings.Join(problems, "; "))
	}

	s.batchIDs = sortedKeys(s.batches)
	s.subjectIDs = sortedKeys(s.subjects)
	s.facultyIDs = sortedKeys(s.faculty)
	s.classroomIDs = sortedKeys(s.classrooms)

	aliases := make(map[string][]string)
	for _, id := range s.subjectIDs {
		sub := s.subjects[id]
		for _, key := range []string{sub.ID, sub.Code, sub.Name} {
			key = normalizeAlias(key)
			if key == "" {
				continue
			}
			aliases[key] = appendUnique(aliases[key], sub.ID)
		}
	}
	for _, id := range s.facultyIDs {
		f := s.faculty[id]
		teaches := make(map[string]bool)
		for _, ref := range f.Subjects {
			for _, subjectID := range aliases[normalizeAlias(ref)] {
				teaches[subjectID] = true
			}
		}
		s.expertise[id] = teaches
		dept := normalizeAlias(f.Department)
		s.departmentOf[dept] = append(s.departmentOf[dept], id)
	}
	return s, nil
}

// Batch looks up a batch by id.
func (s *Snapshot) Batch(id string) (models.Batch, bool) {
	b, ok := s.batches[id]
	return b, ok
}

// Subject looks up a subject by id.
func (s *Snapshot) Subject(id string) (models.Subject, bool) {
	sub, ok := s.subjects[id]
	return sub, ok
}

// Faculty looks up a faculty member by id.
func (s *Snapshot) Faculty(id string) (models.Faculty, bool) {
	f, ok := s.faculty[id]
	return f, ok
}

// Classroom looks up a classroom by id.
func (s *Snapshot) Classroom(id string) (models.Classroom, bool) {
	room, ok := s.classrooms[id]
	return room, ok
}

// FacultyIDs returns every faculty id in ascending order.
func (s *Snapshot) FacultyIDs() []string {
	return append([]string(nil), s.facultyIDs...)
}

// Teaches reports whether the faculty member lists the subject among their expertise.
// Expertise entries may name a subject by id, code or name.
func (s *Snapshot) Teaches(facultyID, subjectID string) bool {
	return s.expertise[facultyID][subjectID]
}

// QualifiedFaculty returns the ids of faculty able to teach the subject, ascending.
func (s *Snapshot) QualifiedFaculty(subjectID string) []string {
	var out []string
	for _, id := range s.facultyIDs {
		if s.expertise[id][subjectID] {
			out = append(out, id)
		}
	}
	return out
}

// CompatibleClassrooms returns rooms whose type and capacity suit the subject and batch.
func (s *Snapshot) CompatibleClassrooms(sub models.Subject, batch models.Batch) []string {
	var out []string
	for _, id := range s.classroomIDs {
		room := s.classrooms[id]
		if roomFits(room, sub, batch) {
			out = append(out, id)
		}
	}
	return out
}

// ApplicableSubjects returns the subjects taught to the batch's department, year and
// semester, ascending by id.
func (s *Snapshot) ApplicableSubjects(batch models.Batch) []models.Subject {
	var out []models.Subject
	for _, id := range s.subjectIDs {
		sub := s.subjects[id]
		if strings.EqualFold(sub.Department, batch.Department) && sub.Year == batch.Year && sub.Semester == batch.Semester {
			out = append(out, sub)
		}
	}
	return out
}

// DepartmentFaculty returns faculty ids belonging to a department, ascending.
// Department names match case-insensitively.
func (s *Snapshot) DepartmentFaculty(department string) []string {
	return s.departmentOf[normalizeAlias(department)]
}

func roomFits(room models.Classroom, sub models.Subject, batch models.Batch) bool {
	if sub.IsLab() != room.IsLab() {
		return false
	}
	return room.Capacity >= batch.StudentCount
}

func normalizeAlias(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
