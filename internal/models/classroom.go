package models

import (
	"time"

	"github.com/lib/pq"
)

// ClassroomType categorises rooms for compatibility checks.
type ClassroomType string

const (
	ClassroomTypeLectureHall ClassroomType = "lecture_hall"
	ClassroomTypeLab         ClassroomType = "lab"
	ClassroomTypeSeminarRoom ClassroomType = "seminar_room"
)

// Classroom represents a bookable room.
type Classroom struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Capacity  int            `db:"capacity" json:"capacity"`
	Type      ClassroomType  `db:"type" json:"type"`
	Equipment pq.StringArray `db:"equipment" json:"equipment"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// IsLab reports whether the room can host laboratory sessions.
func (c Classroom) IsLab() bool {
	return c.Type == ClassroomTypeLab
}
