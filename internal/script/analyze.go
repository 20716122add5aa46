// Package script turns a blog post into a two-host debate script through a
// fixed sequence of stages: analyze, expand, outline, render, assemble.
package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"energy-debates/internal/apperr"
	"energy-debates/internal/llm"
	"energy-debates/internal/models"
)

// Stage names reported in apperr.StageError.
const (
	StageAnalyze  = "analyze"
	StageExpand   = "expand"
	StageOutline  = "outline"
	StageRender   = "render"
	StageAssemble = "assemble"
)

const (
	analysisMaxTokens  = 2048
	expansionMaxTokens = 3000
	outlineMaxTokens   = 2500
	renderMaxTokens    = 8000
)

// TextGenerator is the text-generation capability. *llm.Client satisfies it.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, constraints llm.Constraints) (string, error)
}

// stringList decodes a JSON list of strings leniently: a bare string becomes a
// one-element list, null becomes empty, and non-string items are stringified.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = []string{}
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = nonEmpty([]string{single})
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("expected a list of strings: %w", err)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		out = append(out, string(bytes.TrimSpace(item)))
	}
	*l = nonEmpty(out)
	return nil
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// decodeObject parses a model reply that must be a JSON object. Anything else
// is malformed output.
func decodeObject(reply string, target any) error {
	var object map[string]json.RawMessage
	if err := llm.DecodeJSON(reply, &object); err != nil {
		return apperr.Malformed("expected a JSON object: %v", err)
	}
	if err := llm.DecodeJSON(reply, target); err != nil {
		return apperr.Malformed("decode reply: %v", err)
	}
	return nil
}

type analysisReply struct {
	KeyFacts          stringList `json:"key_facts"`
	MainArguments     stringList `json:"main_arguments"`
	Stakeholders      stringList `json:"stakeholders"`
	ControversyPoints stringList `json:"controversy_points"`
	RegulatoryHooks   stringList `json:"regulatory_hooks"`
}

// Analyze extracts the structured brief from blog content. Missing keys in an
// otherwise valid reply become empty lists.
func Analyze(ctx context.Context, gen TextGenerator, content string) (models.BlogAnalysis, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.BlogAnalysis{}, apperr.Validation("blog content is empty")
	}

	reply, err := gen.Generate(ctx, analysisPrompt(content), llm.Constraints{MaxTokens: analysisMaxTokens})
	if err != nil {
		return models.BlogAnalysis{}, err
	}

	var parsed analysisReply
	if err := decodeObject(reply, &parsed); err != nil {
		return models.BlogAnalysis{}, err
	}
	return models.BlogAnalysis{
		KeyFacts:          nonEmpty(parsed.KeyFacts),
		MainArguments:     nonEmpty(parsed.MainArguments),
		Stakeholders:      nonEmpty(parsed.Stakeholders),
		ControversyPoints: nonEmpty(parsed.ControversyPoints),
		RegulatoryHooks:   nonEmpty(parsed.RegulatoryHooks),
	}, nil
}

type insightsReply struct {
	Utilities       stringList `json:"utilities"`
	Consumers       stringList `json:"consumers"`
	Startups        stringList `json:"startups"`
	Regulatory      stringList `json:"regulatory"`
	ExpertQuestions stringList `json:"expert_questions"`
}

// Expand asks for second and third order implications of the key facts,
// grouped by stakeholder. No facts means no remote call and empty insights.
func Expand(ctx context.Context, gen TextGenerator, facts []string) (models.Insights, error) {
	facts = nonEmpty(facts)
	if len(facts) == 0 {
		return models.Insights{}.Normalize(), nil
	}

	reply, err := gen.Generate(ctx, expansionPrompt(facts), llm.Constraints{MaxTokens: expansionMaxTokens})
	if err != nil {
		return models.Insights{}, err
	}

	var parsed insightsReply
	if err := decodeObject(reply, &parsed); err != nil {
		return models.Insights{}, err
	}
	return models.Insights{
		Utilities:       nonEmpty(parsed.Utilities),
		Consumers:       nonEmpty(parsed.Consumers),
		Startups:        nonEmpty(parsed.Startups),
		Regulatory:      nonEmpty(parsed.Regulatory),
		ExpertQuestions: nonEmpty(parsed.ExpertQuestions),
	}, nil
}
