package script

import (
	"strings"
	"unicode"

	"energy-debates/internal/apperr"
	"energy-debates/internal/models"
	"energy-debates/internal/scriptfmt"
)

const (
	titlePrefix       = "Energy Debates: "
	summaryMaxRunes   = 600
	summaryMaxTopics  = 3
	summaryMaxQuotes  = 2
	summaryQuoteRunes = 200
)

// Summarize derives the callback seed for the next episode from the script
// alone. It is deterministic and non-empty for any non-empty script.
func Summarize(script string) string {
	script = strings.TrimSpace(script)
	if script == "" {
		return ""
	}

	var topics []string
	quotes := map[models.Speaker]string{}
	var order []models.Speaker
	var fallback string
	for _, line := range scriptfmt.Tokenize(script) {
		switch line.Kind {
		case scriptfmt.Heading:
			if line.Text != "" && len(topics) < summaryMaxTopics {
				topics = append(topics, line.Text)
			}
		case scriptfmt.SpeakerLine:
			if _, seen := quotes[line.Speaker]; seen {
				continue
			}
			if sentence := firstSentence(scriptfmt.StripDirections(line.Text)); sentence != "" {
				quotes[line.Speaker] = sentence
				order = append(order, line.Speaker)
			}
		case scriptfmt.Text:
			if fallback == "" {
				fallback = firstSentence(scriptfmt.StripDirections(line.Text))
			}
		}
	}

	var parts []string
	if len(topics) > 0 {
		parts = append(parts, "Covered: "+strings.Join(topics, "; ")+".")
	}
	for i, speaker := range order {
		if i >= summaryMaxQuotes {
			break
		}
		parts = append(parts, speakerName(speaker)+" said: \""+truncate(quotes[speaker], summaryQuoteRunes)+"\"")
	}
	if len(parts) == 0 {
		if fallback == "" {
			fallback = strings.Join(strings.Fields(script), " ")
		}
		parts = append(parts, fallback)
	}
	return truncate(strings.Join(parts, " "), summaryMaxRunes)
}

// Assemble packages a finished run into an Episode ready to persist in one write.
func Assemble(blog *models.Blog, settings models.GenerationSettings, insights models.Insights, script string) (*models.Episode, error) {
	if strings.TrimSpace(script) == "" {
		return nil, apperr.Validation("script is empty")
	}
	focus := settings.FocusAreas
	if focus == nil {
		focus = []string{}
	}
	return &models.Episode{
		BlogID:           blog.ID,
		Title:            titlePrefix + blog.Title,
		Script:           script,
		Insights:         insights.Normalize(),
		Summary:          Summarize(script),
		DurationEstimate: settings.Duration.Minutes(),
		HumorLevel:       settings.HumorLevel,
		FocusAreas:       focus,
	}, nil
}

func speakerName(s models.Speaker) string {
	switch s {
	case models.SpeakerDoug:
		return "Doug"
	case models.SpeakerClaire:
		return "Claire"
	default:
		return string(s)
	}
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			next := i + 1
			if next >= len(text) || unicode.IsSpace(rune(text[next])) {
				return strings.TrimSpace(text[:next])
			}
		}
	}
	return text
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit-3])) + "..."
}
