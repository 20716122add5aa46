// Package scriptfmt defines the episode script grammar once: every consumer
// (renderer validation, speech segmentation, exports) reads scripts through Tokenize.
package scriptfmt

import (
	"regexp"
	"strings"

	"energy-debates/internal/models"
)

// Kind classifies a single script line.
type Kind int

const (
	Blank Kind = iota
	Text
	SpeakerLine
	StageDirection
	Timestamp
	Heading
)

func (k Kind) String() string {
	switch k {
	case Blank:
		return "blank"
	case Text:
		return "text"
	case SpeakerLine:
		return "speaker"
	case StageDirection:
		return "stage_direction"
	case Timestamp:
		return "timestamp"
	case Heading:
		return "heading"
	default:
		return "unknown"
	}
}

// Line is one tokenized script line.
type Line struct {
	Number  int
	Kind    Kind
	Raw     string
	Speaker models.Speaker
	// Text is the dialogue after the label, the heading title, the marker or the direction body.
	Text  string
	Level int
	// Marker is the timestamp that prefixed a speaker label on the same line.
	Marker string
}

var (
	emph          = `(?:\*{1,2}|_{1,2})?`
	speakerExpr   = regexp.MustCompile(`(?i)^` + emph + `(DOUG|CLAIRE)` + emph + `\s*:` + emph + `\s*(.*)$`)
	timestampExpr = regexp.MustCompile(`^\[((?:\d{1,2}:)?\d{1,2}:\d{2})\]\s*(.*)$`)
	directionExpr = regexp.MustCompile(`^\[([^\[\]0-9][^\[\]]*)\]$`)
	headingExpr   = regexp.MustCompile(`^(#+)\s*(.*)$`)
	bracketExpr   = regexp.MustCompile(`\[[^\[\]]*\]`)
)

// Tokenize splits a script into classified lines, preserving order.
func Tokenize(script string) []Line {
	script = strings.ReplaceAll(script, "\r\n", "\n")
	rawLines := strings.Split(script, "\n")
	lines := make([]Line, 0, len(rawLines))
	for i, raw := range rawLines {
		lines = append(lines, Classify(i+1, raw))
	}
	return lines
}

// Classify tokenizes a single line.
func Classify(number int, raw string) Line {
	line := Line{Number: number, Raw: raw}
	trimmed := strings.TrimSpace(raw)

	switch {
	case trimmed == "":
		line.Kind = Blank
	case strings.HasPrefix(trimmed, "#"):
		m := headingExpr.FindStringSubmatch(trimmed)
		line.Kind = Heading
		line.Level = len(m[1])
		line.Text = strings.TrimSpace(m[2])
	case timestampExpr.MatchString(trimmed):
		m := timestampExpr.FindStringSubmatch(trimmed)
		if s := speakerExpr.FindStringSubmatch(m[2]); s != nil {
			line.Kind = SpeakerLine
			line.Speaker = models.Speaker(strings.ToLower(s[1]))
			line.Text = strings.TrimSpace(s[2])
			line.Marker = m[1]
			break
		}
		line.Kind = Timestamp
		line.Text = m[1]
	case directionExpr.MatchString(trimmed):
		m := directionExpr.FindStringSubmatch(trimmed)
		line.Kind = StageDirection
		line.Text = strings.TrimSpace(m[1])
	case speakerExpr.MatchString(trimmed):
		m := speakerExpr.FindStringSubmatch(trimmed)
		line.Kind = SpeakerLine
		line.Speaker = models.Speaker(strings.ToLower(m[1]))
		line.Text = strings.TrimSpace(m[2])
	default:
		line.Kind = Text
		line.Text = trimmed
	}
	return line
}

// StripDirections removes every bracketed span and collapses whitespace.
func StripDirections(text string) string {
	return strings.Join(strings.Fields(bracketExpr.ReplaceAllString(text, " ")), " ")
}

// Stats counts dialogue lines per speaker.
type Stats struct {
	Doug   int
	Claire int
}

// Both reports whether each host speaks at least once.
func (s Stats) Both() bool {
	return s.Doug > 0 && s.Claire > 0
}

// Total is the number of speaker-labeled lines.
func (s Stats) Total() int {
	return s.Doug + s.Claire
}

// Count tallies speaker-labeled lines in a script.
func Count(script string) Stats {
	var stats Stats
	for _, line := range Tokenize(script) {
		if line.Kind != SpeakerLine {
			continue
		}
		switch line.Speaker {
		case models.SpeakerDoug:
			stats.Doug++
		case models.SpeakerClaire:
			stats.Claire++
		}
	}
	return stats
}
