package script

import (
	"context"
	"strings"

	"energy-debates/internal/apperr"
	"energy-debates/internal/llm"
	"energy-debates/internal/models"
	"energy-debates/internal/scriptfmt"
)

// wordsPerMinute converts the duration band into a dialogue length target.
const wordsPerMinute = 150

// Render writes the full dialogue. The reply must contain at least one line
// from each host; anything else is malformed output.
func Render(ctx context.Context, gen TextGenerator, cast models.Cast, outline models.Outline, settings models.GenerationSettings) (string, error) {
	minutes := settings.Duration.Minutes()
	if minutes == 0 {
		return "", apperr.Validation("unknown duration %q", settings.Duration)
	}

	reply, err := gen.Generate(ctx, renderPrompt(cast, outline, minutes, settings.HumorLevel), llm.Constraints{MaxTokens: renderMaxTokens})
	if err != nil {
		return "", err
	}

	script := cleanScript(reply)
	stats := scriptfmt.Count(script)
	switch {
	case stats.Total() == 0:
		return "", apperr.Malformed("script has no speaker-labeled lines")
	case stats.Doug == 0:
		return "", apperr.Malformed("script has no DOUG lines")
	case stats.Claire == 0:
		return "", apperr.Malformed("script has no CLAIRE lines")
	}
	return script, nil
}

// cleanScript drops a wrapping code fence and any preamble before the first
// structural line.
func cleanScript(reply string) string {
	text := strings.ReplaceAll(strings.TrimSpace(reply), "\r\n", "\n")
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	lines := scriptfmt.Tokenize(text)
	start := 0
	for i, line := range lines {
		if line.Kind == scriptfmt.SpeakerLine || line.Kind == scriptfmt.Timestamp || line.Kind == scriptfmt.Heading {
			start = i
			break
		}
	}
	raw := make([]string, 0, len(lines)-start)
	for _, line := range lines[start:] {
		raw = append(raw, strings.TrimRight(line.Raw, " \t"))
	}
	return strings.TrimSpace(strings.Join(raw, "\n"))
}
