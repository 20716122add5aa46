package models

import (
	"time"

	"github.com/lib/pq"
)

type Episode struct {
	ID               string         `db:"id" json:"id"`
	BlogID           string         `db:"blog_id" json:"blog_id"`
	Title            string         `db:"title" json:"title"`
	Script           string         `db:"script" json:"script"`
	Insights         Insights       `db:"insights" json:"insights"`
	Summary          string         `db:"summary" json:"summary"`
	DurationEstimate int            `db:"duration_estimate" json:"duration_estimate"`
	HumorLevel       int            `db:"humor_level" json:"humor_level"`
	FocusAreas       pq.StringArray `db:"focus_areas" json:"focus_areas"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// Outline is the intermediate plan handed from the outline stage to the renderer.
type Outline struct {
	ColdOpen           string            `json:"cold_open"`
	Callback           string            `json:"callback,omitempty"`
	Intro              string            `json:"intro"`
	Segments           []OutlineSegment  `json:"segments"`
	Emphasis           []string          `json:"emphasis,omitempty"`
	StakeholderRoundup []RoundupCategory `json:"stakeholder_roundup"`
	Close              string            `json:"close"`
}

type OutlineSegment struct {
	Topic          string `json:"topic"`
	DougPosition   string `json:"doug_position"`
	ClaireCounter  string `json:"claire_counter"`
	AgreementPoint string `json:"agreement_point"`
}

type RoundupCategory struct {
	Category string   `json:"category"`
	Points   []string `json:"points"`
}

// Speaker identifies one of the two hosts.
type Speaker string

const (
	SpeakerDoug   Speaker = "doug"
	SpeakerClaire Speaker = "claire"
)

// AudioSegment is one speaker turn, positioned by Index in playback order.
type AudioSegment struct {
	Index     int     `json:"index"`
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	AudioPath string  `json:"audio_path,omitempty"`
}
