package models

import (
	"time"

	"github.com/lib/pq"
)

// Faculty represents a lecturer together with the subjects they can teach.
type Faculty struct {
	ID         string         `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	Email      string         `db:"email" json:"email"`
	Department string         `db:"department" json:"department"`
	Subjects   pq.StringArray `db:"subjects" json:"subjects"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
