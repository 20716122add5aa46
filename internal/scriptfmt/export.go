package scriptfmt

import (
	"strings"

	"energy-debates/internal/apperr"
)

// Export formats.
const (
	FormatText         = "txt"
	FormatTeleprompter = "teleprompter"
)

// Export renders a script for download. The teleprompter layout puts a rule
// above every speaker turn and upper-cases the label so it reads at a distance.
func Export(script, format string) (string, error) {
	switch format {
	case "", FormatText:
		return script, nil
	case FormatTeleprompter:
		var b strings.Builder
		for i, line := range Tokenize(script) {
			if i > 0 {
				b.WriteByte('\n')
			}
			switch line.Kind {
			case SpeakerLine:
				b.WriteString("\n" + strings.Repeat("=", 40) + "\n")
				if line.Marker != "" {
					b.WriteString("[" + line.Marker + "] ")
				}
				b.WriteString(strings.ToUpper(string(line.Speaker)) + ": " + line.Text)
			default:
				b.WriteString(line.Raw)
			}
		}
		return b.String(), nil
	default:
		return "", apperr.Validation("unknown export format %q", format)
	}
}
