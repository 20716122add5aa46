package models

// CharacterProfile describes a host persona for prompt construction.
type CharacterProfile struct {
	Key            Speaker  `yaml:"key" json:"key"`
	Name           string   `yaml:"name" json:"name"`
	Role           string   `yaml:"role" json:"role"`
	Background     string   `yaml:"background" json:"background"`
	PoliticalLean  string   `yaml:"political_lean" json:"political_lean"`
	ExpertiseAreas []string `yaml:"expertise_areas" json:"expertise_areas"`
	Catchphrases   []string `yaml:"catchphrases" json:"catchphrases"`
	SpeechPatterns []string `yaml:"speech_patterns" json:"speech_patterns"`
}

// Cast is the pair of hosts. It is built once at startup and only read afterwards.
type Cast struct {
	Doug   CharacterProfile `yaml:"doug" json:"doug"`
	Claire CharacterProfile `yaml:"claire" json:"claire"`
}

// DefaultCast returns the stock Energy Debates hosts.
func DefaultCast() Cast {
	return Cast{
		Doug: CharacterProfile{
			Key:           SpeakerDoug,
			Name:          "Doug Morrison",
			Role:          "Host",
			Background:    "35 years at FERC, retired Deputy General Counsel. Georgetown Law. Started when PURPA was new.",
			PoliticalLean: "Conservative, free-market, skeptical of subsidies",
			ExpertiseAreas: []string{
				"FERC precedent", "Wholesale markets", "Transmission policy", "Rate cases",
			},
			Catchphrases: []string{
				"Well now, let me tell you...",
				"Back when Order 888 was just a gleam in someone's eye...",
				"The market has a way of sorting these things out",
				"I've seen this movie before",
			},
			SpeechPatterns: []string{
				"Long pauses before making a point",
				"References to specific docket numbers",
				"Rhetorical questions",
				"Self-deprecating humor about his age",
			},
		},
		Claire: CharacterProfile{
			Key:           SpeakerClaire,
			Name:          "Claire Nakamura",
			Role:          "Commentator",
			Background:    "15 years energy consulting. Former McKinsey partner, now a consulting lead. Stanford MBA, Berkeley engineering.",
			PoliticalLean: "Progressive, pro-innovation, pragmatic about policy",
			ExpertiseAreas: []string{
				"Utility strategy", "DER economics", "Rate design", "Customer engagement",
			},
			Catchphrases: []string{
				"The data actually shows...",
				"I was just talking to a utility exec who said...",
				"Let me offer a different framing here",
				"Doug, you're not wrong, but...",
			},
			SpeechPatterns: []string{
				"Leads with data and charts (describes them)",
				"Client anecdotes (anonymized)",
				"Frameworks and mental models",
				"Acknowledges complexity",
			},
		},
	}
}
