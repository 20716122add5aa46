// Package audio turns a finished script into a single mastered episode file.
package audio

import (
	"iter"
	"slices"
	"strings"

	"energy-debates/internal/models"
	"energy-debates/internal/scriptfmt"
)

// Segments yields one AudioSegment per speaker turn, in script order. A turn
// starts at a speaker label and absorbs following plain-text lines; headings
// close it. Bracketed directions are removed and turns left empty are skipped.
// Indexes are contiguous from zero over the yielded segments.
func Segments(script string) iter.Seq[models.AudioSegment] {
	return func(yield func(models.AudioSegment) bool) {
		index := 0
		var speaker models.Speaker
		var parts []string

		flush := func() bool {
			if speaker == "" {
				return true
			}
			text := scriptfmt.StripDirections(strings.Join(parts, " "))
			current := speaker
			speaker, parts = "", nil
			if text == "" {
				return true
			}
			seg := models.AudioSegment{Index: index, Speaker: current, Text: text}
			index++
			return yield(seg)
		}

		for _, line := range scriptfmt.Tokenize(script) {
			switch line.Kind {
			case scriptfmt.SpeakerLine:
				if !flush() {
					return
				}
				speaker = line.Speaker
				parts = []string{line.Text}
			case scriptfmt.Text:
				if speaker != "" {
					parts = append(parts, line.Text)
				}
			case scriptfmt.Heading:
				if !flush() {
					return
				}
			}
		}
		flush()
	}
}

// Collect materializes the segment sequence.
func Collect(script string) []models.AudioSegment {
	return slices.Collect(Segments(script))
}
