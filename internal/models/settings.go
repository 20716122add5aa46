package models

import (
	"strings"

	"energy-debates/internal/apperr"
)

// Duration is the requested episode length band.
type Duration string

const (
	DurationShort  Duration = "short"
	DurationMedium Duration = "medium"
	DurationLong   Duration = "long"
)

// Minutes returns the target dialogue length for the band, or 0 if unknown.
func (d Duration) Minutes() int {
	switch d {
	case DurationShort:
		return 10
	case DurationMedium:
		return 20
	case DurationLong:
		return 30
	default:
		return 0
	}
}

// Insight categories, in the order they are presented.
const (
	CategoryUtilities  = "utilities"
	CategoryConsumers  = "consumers"
	CategoryStartups   = "startups"
	CategoryRegulatory = "regulatory"
)

// Categories lists every insight category.
var Categories = []string{CategoryUtilities, CategoryConsumers, CategoryStartups, CategoryRegulatory}

// GenerationSettings are caller supplied knobs for one script run.
type GenerationSettings struct {
	Duration            Duration `json:"duration"`
	HumorLevel          int      `json:"humor_level"`
	FocusAreas          []string `json:"focus_areas"`
	CustomTalkingPoints []string `json:"custom_talking_points"`
}

// DefaultGenerationSettings matches what the editor starts with.
func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{Duration: DurationMedium, HumorLevel: 3}
}

// Validate rejects settings outside the enumerated ranges.
func (s GenerationSettings) Validate() error {
	if s.Duration.Minutes() == 0 {
		return apperr.Validation("duration %q must be one of short, medium, long", s.Duration)
	}
	if s.HumorLevel < 1 || s.HumorLevel > 5 {
		return apperr.Validation("humor_level %d must be between 1 and 5", s.HumorLevel)
	}
	for _, area := range s.FocusAreas {
		if strings.TrimSpace(area) == "" {
			return apperr.Validation("focus_areas must not contain blank entries")
		}
	}
	return nil
}
