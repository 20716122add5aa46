package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// EpisodeMetadata is the publishing copy for one episode.
type EpisodeMetadata struct {
	EpisodeID   string         `db:"episode_id" json:"episode_id"`
	Title       string         `db:"title" json:"title"`
	Description string         `db:"description" json:"description"`
	Keywords    pq.StringArray `db:"keywords" json:"keywords"`
	Chapters    Chapters       `db:"chapters" json:"chapters"`
	SearchTerms pq.StringArray `db:"search_terms" json:"search_terms"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// Chapter marks where a section of the episode starts, as MM:SS or HH:MM:SS.
type Chapter struct {
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
}

type Chapters []Chapter

// Value stores chapters as a JSON column.
func (c Chapters) Value() (driver.Value, error) {
	if c == nil {
		c = Chapters{}
	}
	return json.Marshal([]Chapter(c))
}

// Scan reads chapters from a JSON column.
func (c *Chapters) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*c = Chapters{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New(fmt.Sprint("failed to unmarshal chapters value:", value))
	}
	decoded := Chapters{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*c = decoded
	return nil
}
