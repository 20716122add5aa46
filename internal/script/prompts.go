package script

import (
	"encoding/json"
	"fmt"
	"strings"

	"energy-debates/internal/models"
)

const attribution = "Dr. Cheyenne's blog at askespresso.com"

const firstEpisodeSummary = "This is the first episode of Energy Debates!"

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- (none)"
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- " + item)
	}
	return b.String()
}

func personaBlock(p models.CharacterProfile) string {
	return fmt.Sprintf(`%s (%s)
Background: %s
Political lean: %s
Expertise: %s
Speech patterns: %s
Catchphrases: %s`,
		p.Name, p.Role,
		p.Background,
		p.PoliticalLean,
		strings.Join(p.ExpertiseAreas, "; "),
		strings.Join(p.SpeechPatterns, "; "),
		strings.Join(p.Catchphrases, " | "),
	)
}

func analysisPrompt(content string) string {
	return fmt.Sprintf(`You are an energy industry analyst preparing a podcast brief.

Analyze this blog post and extract:
1. KEY_FACTS: Specific data points, statistics, dates, figures (be precise)
2. MAIN_ARGUMENTS: Core thesis and supporting claims
3. STAKEHOLDERS: Who is affected (utilities, consumers, regulators, startups, IPPs, etc.)
4. CONTROVERSY_POINTS: Elements that could spark debate between a conservative FERC lawyer and a progressive consultant
5. REGULATORY_HOOKS: Any FERC, PUC, state, or federal policy implications

Blog Content:
%s

Respond with valid JSON using exactly these keys: key_facts, main_arguments, stakeholders, controversy_points, regulatory_hooks.
Each value should be a list of strings.`, content)
}

func expansionPrompt(facts []string) string {
	return fmt.Sprintf(`You are a senior energy economist with 25+ years advising utilities, regulators, and investors.

Given these facts from %s:
%s

Generate deeper insights a senior professional would draw out:

SECOND_DEGREE_INSIGHTS (direct implications):
- What does this mean for utility integrated resource planning (IRP)?
- How might this affect pending or future rate cases?
- What startup opportunities or threats emerge?
- Which utilities are most exposed or advantaged?

THIRD_DEGREE_INSIGHTS (downstream effects):
- Long-term grid architecture implications (5-10 year horizon)
- Consumer behavior and adoption curve changes
- Market structure evolution and new business models
- Regulatory precedent risks or opportunities

EXPERT_QUESTIONS (what sophisticated stakeholders would ask):
- What would a FERC commissioner want clarified?
- What would a utility CFO need for the board?
- What would a cleantech VC focus due diligence on?
- What would a state PUC staffer flag for commissioners?

Be specific. Reference actual market dynamics, real regulatory frameworks, and historical parallels.

Respond with valid JSON using keys: utilities, consumers, startups, regulatory, expert_questions.
Each should be a list of 3-5 insightful strings.`, attribution, bulletList(facts))
}

func outlinePrompt(cast models.Cast, in OutlineInput) string {
	insights, _ := json.MarshalIndent(in.Insights.Normalize(), "", "  ")
	previous := in.PreviousSummary
	if strings.TrimSpace(previous) == "" {
		previous = firstEpisodeSummary
	}

	focus := "all stakeholder categories equally"
	if len(in.Settings.FocusAreas) > 0 {
		focus = strings.Join(in.Settings.FocusAreas, ", ")
	}
	talking := ""
	if len(in.Settings.CustomTalkingPoints) > 0 {
		talking = "\nTALKING POINTS THE PRODUCER WANTS COVERED:\n" + bulletList(in.Settings.CustomTalkingPoints) + "\n"
	}

	return fmt.Sprintf(`Create a podcast script outline for an "Energy Debates" episode.

CHARACTERS:
- DOUG: %s
- CLAIRE: %s

TOPIC: %s
KEY FACTS FROM BLOG:
%s
CONTROVERSY POINTS:
%s
EXPANDED INSIGHTS: %s
PREVIOUS EPISODE SUMMARY (for callbacks): %s
FOCUS AREAS: %s
%s
Plan the episode:
1. cold_open: light banter and a brief callback to the previous episode if relevant, then a transition to the topic
2. intro: Doug introduces the topic with gentle skepticism, sets up the debate, mentions "%s"
3. segments: 3-4 debate segments, each with Doug's position (regulatory/market), Claire's counter (data/innovation) and a point of agreement (they're friends)
4. close: one takeaway from each host, a teaser and a friendly sign-off

Respond with valid JSON only, using this structure:
{"cold_open": "...", "intro": "...", "segments": [{"topic": "...", "doug_position": "...", "claire_counter": "...", "agreement_point": "..."}], "close": "..."}`,
		personaBlock(cast.Doug),
		personaBlock(cast.Claire),
		in.Title,
		bulletList(in.Analysis.KeyFacts),
		bulletList(in.Analysis.ControversyPoints),
		string(insights),
		previous,
		focus,
		talking,
		attribution,
	)
}

func renderPrompt(cast models.Cast, outline models.Outline, minutes, humor int) string {
	var plan strings.Builder
	plan.WriteString("COLD OPEN: " + outline.ColdOpen + "\n")
	if outline.Callback != "" {
		plan.WriteString("CALLBACK TO LAST EPISODE: " + outline.Callback + "\n")
	}
	plan.WriteString("INTRO: " + outline.Intro + "\n")
	for i, seg := range outline.Segments {
		fmt.Fprintf(&plan, "SEGMENT %d: %s\n  DOUG: %s\n  CLAIRE: %s\n  AGREEMENT: %s\n",
			i+1, seg.Topic, seg.DougPosition, seg.ClaireCounter, seg.AgreementPoint)
	}
	if len(outline.Emphasis) > 0 {
		plan.WriteString("EMPHASIZE: " + strings.Join(outline.Emphasis, ", ") + "\n")
	}
	if len(outline.StakeholderRoundup) > 0 {
		plan.WriteString("STAKEHOLDER ROUNDUP:\n")
		for _, cat := range outline.StakeholderRoundup {
			plan.WriteString("  " + strings.ToUpper(cat.Category) + ":\n")
			for _, p := range cat.Points {
				plan.WriteString("    - " + p + "\n")
			}
		}
	}
	plan.WriteString("CLOSE: " + outline.Close)

	return fmt.Sprintf(`Write the complete podcast script based on this outline.

OUTLINE:
%s

CHARACTER VOICE GUIDE:

DOUG: %s

CLAIRE: %s

STYLE RULES:
- Natural speech: occasional "um", "well", "you know" (sparingly)
- Stage directions on their own line or inline: [laughs], [sighs], [paper shuffling], [sips coffee]
- Timing markers every 5 min on their own line: [00:00], [05:00], [10:00]...
- Section headings as markdown: ## Cold Open, ## Stakeholder Roundup
- Both hosts are likeable: disagreement with mutual respect, no strawmanning
- Doug admits when Claire has a point (and vice versa)
- BOTH hosts must speak; never write a monologue

LENGTH TARGET: %d minutes of dialogue (roughly %d words)
HUMOR LEVEL: %d/5 (1=serious, 5=comedy podcast)

ATTRIBUTION: Reference "%s" exactly twice.

Format every dialogue line as:
[TIMESTAMP]
SPEAKER: Dialogue with [stage directions].

where SPEAKER is DOUG or CLAIRE.

Begin script:`,
		plan.String(),
		personaBlock(cast.Doug),
		personaBlock(cast.Claire),
		minutes, minutes*wordsPerMinute,
		humor,
		attribution,
	)
}

func metadataPrompt(episode *models.Episode, chapters models.Chapters) string {
	insights, _ := json.MarshalIndent(episode.Insights.Normalize(), "", "  ")
	timing := "(no timing markers)"
	if len(chapters) > 0 {
		var b strings.Builder
		for i, ch := range chapters {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- " + ch.StartTime + " " + ch.Title)
		}
		timing = b.String()
	}

	return fmt.Sprintf(`Generate podcast episode metadata for Spotify distribution.

EPISODE TITLE: %s
EPISODE SUMMARY: %s
KEY INSIGHTS:
%s
SCRIPT SECTIONS:
%s

Generate the following:

1. DESCRIPTION (2-3 paragraphs):
   - Opening hook that grabs attention
   - What Doug and Claire debate in this episode
   - Key takeaways for different audiences (utilities, startups, consumers)
   - Call to action: subscribe and leave a review
   - Include: "Based on %s"

2. KEYWORDS (8-12 tags for discoverability):
   - Mix of broad terms (energy, utilities, podcast)
   - Specific terms related to episode topic
   - Always include: %s

3. CHAPTERS (from the script sections):
   - Format each as: {"title": "Chapter Name", "start_time": "MM:SS"}
   - Include: Intro, main discussion segments, Outro

4. SEARCH_TERMS (3-5 terms for thumbnail image search):
   - Relevant imagery: power grid, solar, wind, energy, electricity
   - Avoid: generic business, office, people stock photos

Output as JSON with keys: description, keywords, chapters, search_terms`,
		episode.Title,
		episode.Summary,
		insights,
		timing,
		attribution,
		`"`+strings.Join(requiredKeywords, `", "`)+`"`,
	)
}
