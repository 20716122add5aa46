package models

import (
	"time"

	"github.com/lib/pq"
)

// Blog is an uploaded post, normalized to plain text.
type Blog struct {
	ID        string         `db:"id" json:"id"`
	Title     string         `db:"title" json:"title"`
	Content   string         `db:"content" json:"content"`
	Tags      pq.StringArray `db:"tags" json:"tags"`
	Summary   string         `db:"summary" json:"summary"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
