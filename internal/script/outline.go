package script

import (
	"context"
	"strings"

	"energy-debates/internal/apperr"
	"energy-debates/internal/llm"
	"energy-debates/internal/models"
)

// OutlineInput is everything the outline stage reads.
type OutlineInput struct {
	Title           string
	Analysis        models.BlogAnalysis
	Insights        models.Insights
	Settings        models.GenerationSettings
	PreviousSummary string
}

type outlineReply struct {
	ColdOpen string `json:"cold_open"`
	Intro    string `json:"intro"`
	Segments []struct {
		Topic          string `json:"topic"`
		DougPosition   string `json:"doug_position"`
		ClaireCounter  string `json:"claire_counter"`
		AgreementPoint string `json:"agreement_point"`
	} `json:"segments"`
	Close string `json:"close"`
}

// BuildOutline plans the episode. The model writes the cold open, intro,
// debate segments and close; the callback, emphasis and stakeholder roundup are
// filled in from the inputs so they never depend on the model remembering them.
func BuildOutline(ctx context.Context, gen TextGenerator, cast models.Cast, in OutlineInput) (models.Outline, error) {
	reply, err := gen.Generate(ctx, outlinePrompt(cast, in), llm.Constraints{MaxTokens: outlineMaxTokens})
	if err != nil {
		return models.Outline{}, err
	}

	var parsed outlineReply
	if err := decodeObject(reply, &parsed); err != nil {
		return models.Outline{}, err
	}

	outline := models.Outline{
		ColdOpen: strings.TrimSpace(parsed.ColdOpen),
		Intro:    strings.TrimSpace(parsed.Intro),
		Close:    strings.TrimSpace(parsed.Close),
	}
	for _, seg := range parsed.Segments {
		s := models.OutlineSegment{
			Topic:          strings.TrimSpace(seg.Topic),
			DougPosition:   strings.TrimSpace(seg.DougPosition),
			ClaireCounter:  strings.TrimSpace(seg.ClaireCounter),
			AgreementPoint: strings.TrimSpace(seg.AgreementPoint),
		}
		if s.DougPosition == "" && s.ClaireCounter == "" {
			continue
		}
		outline.Segments = append(outline.Segments, s)
	}
	if len(outline.Segments) == 0 {
		return models.Outline{}, apperr.Malformed("outline has no debate segments")
	}

	if prev := strings.TrimSpace(in.PreviousSummary); prev != "" {
		outline.Callback = prev
		if !strings.Contains(outline.ColdOpen, prev) {
			outline.ColdOpen = strings.TrimSpace(outline.ColdOpen + "\nCallback to last episode: " + prev)
		}
	}
	outline.Emphasis = emphasis(in.Settings.FocusAreas)
	outline.StakeholderRoundup = roundup(in.Insights)
	return outline, nil
}

// emphasis keeps the focus areas that name a known category, in category
// order. Unknown areas are ignored; none means equal weight.
func emphasis(focus []string) []string {
	wanted := make(map[string]bool, len(focus))
	for _, f := range focus {
		wanted[strings.ToLower(strings.TrimSpace(f))] = true
	}
	out := []string{}
	for _, cat := range models.Categories {
		if wanted[cat] {
			out = append(out, cat)
		}
	}
	return out
}

// roundup lists every category that has insights. Focus areas never drop a
// category from the roundup.
func roundup(insights models.Insights) []models.RoundupCategory {
	out := []models.RoundupCategory{}
	for _, cat := range models.Categories {
		points := insights.Category(cat)
		if len(points) == 0 {
			continue
		}
		out = append(out, models.RoundupCategory{Category: cat, Points: append([]string(nil), points...)})
	}
	return out
}
