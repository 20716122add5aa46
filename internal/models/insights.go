package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// BlogAnalysis is the structured output of the analysis stage.
type BlogAnalysis struct {
	KeyFacts          []string `json:"key_facts"`
	MainArguments     []string `json:"main_arguments"`
	Stakeholders      []string `json:"stakeholders"`
	ControversyPoints []string `json:"controversy_points"`
	RegulatoryHooks   []string `json:"regulatory_hooks"`
}

// Insights are the categorized talking points from research expansion.
type Insights struct {
	Utilities       []string `json:"utilities"`
	Consumers       []string `json:"consumers"`
	Startups        []string `json:"startups"`
	Regulatory      []string `json:"regulatory"`
	ExpertQuestions []string `json:"expert_questions"`
}

// Category returns the points stored under one of Categories.
func (i Insights) Category(name string) []string {
	switch name {
	case CategoryUtilities:
		return i.Utilities
	case CategoryConsumers:
		return i.Consumers
	case CategoryStartups:
		return i.Startups
	case CategoryRegulatory:
		return i.Regulatory
	default:
		return nil
	}
}

// Normalize replaces nil categories with empty slices so they encode as [].
func (i Insights) Normalize() Insights {
	return Insights{
		Utilities:       nonNil(i.Utilities),
		Consumers:       nonNil(i.Consumers),
		Startups:        nonNil(i.Startups),
		Regulatory:      nonNil(i.Regulatory),
		ExpertQuestions: nonNil(i.ExpertQuestions),
	}
}

// Value stores insights as a JSON column.
func (i Insights) Value() (driver.Value, error) {
	return json.Marshal(i.Normalize())
}

// Scan reads insights from a JSON column.
func (i *Insights) Scan(value interface{}) error {
	if value == nil {
		*i = Insights{}.Normalize()
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New(fmt.Sprint("failed to unmarshal insights value:", value))
	}
	var decoded Insights
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*i = decoded.Normalize()
	return nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
