package models

import "time"

// JobStatus is the lifecycle stage of an audio job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobGenerating JobStatus = "generating"
	JobProcessing JobStatus = "processing"
	JobComplete   JobStatus = "complete"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobComplete || s == JobFailed
}

// AudioJob tracks one asynchronous audio run for an episode.
type AudioJob struct {
	ID              string    `db:"id" json:"id"`
	EpisodeID       string    `db:"episode_id" json:"episode_id"`
	Status          JobStatus `db:"status" json:"status"`
	Progress        int       `db:"progress" json:"progress"`
	Message         string    `db:"message" json:"message"`
	SegmentCount    int       `db:"segment_count" json:"segment_count"`
	DurationSeconds *int      `db:"duration_seconds" json:"duration_seconds,omitempty"`
	OutputPath      *string   `db:"output_path" json:"output_path,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
