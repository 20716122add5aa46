package script

import (
	"context"
	"log"
	"regexp"
	"strings"

	"energy-debates/internal/apperr"
	"energy-debates/internal/llm"
	"energy-debates/internal/models"
	"energy-debates/internal/scriptfmt"
)

// StageMetadata names failures while writing publishing copy.
const StageMetadata = "metadata"

const metadataMaxTokens = 2000

var (
	requiredKeywords = []string{"energy debates podcast", "energy policy"}
	startTimeExpr    = regexp.MustCompile(`^(?:\d{1,2}:)?\d{1,2}:\d{2}$`)
)

type chapterReply struct {
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
}

type metadataReply struct {
	Description string         `json:"description"`
	Keywords    stringList     `json:"keywords"`
	Chapters    []chapterReply `json:"chapters"`
	SearchTerms stringList     `json:"search_terms"`
}

// Describe writes the publishing copy for an episode. Chapters come from the
// script's own headings and timing markers when it has them; the model's
// chapters are used only for scripts without markers.
func Describe(ctx context.Context, gen TextGenerator, episode *models.Episode) (*models.EpisodeMetadata, error) {
	if episode == nil || strings.TrimSpace(episode.Script) == "" {
		return nil, apperr.Validation("episode has no script")
	}
	chapters := ScriptChapters(episode.Script)

	reply, err := gen.Generate(ctx, metadataPrompt(episode, chapters), llm.Constraints{MaxTokens: metadataMaxTokens})
	if err != nil {
		return nil, err
	}
	var parsed metadataReply
	if err := decodeObject(reply, &parsed); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(parsed.Description)
	if description == "" {
		return nil, apperr.Malformed("metadata has no description")
	}

	if len(chapters) == 0 {
		for _, ch := range parsed.Chapters {
			title, start := strings.TrimSpace(ch.Title), strings.TrimSpace(ch.StartTime)
			if title == "" || !startTimeExpr.MatchString(start) {
				continue
			}
			chapters = append(chapters, models.Chapter{Title: title, StartTime: start})
		}
	}
	if chapters == nil {
		chapters = models.Chapters{}
	}

	return &models.EpisodeMetadata{
		EpisodeID:   episode.ID,
		Title:       episode.Title,
		Description: description,
		Keywords:    withRequiredKeywords(nonEmpty(parsed.Keywords)),
		Chapters:    chapters,
		SearchTerms: nonEmpty(parsed.SearchTerms),
	}, nil
}

// ScriptChapters pairs each section heading below the title with the first
// timing marker that follows it.
func ScriptChapters(script string) models.Chapters {
	var (
		chapters  models.Chapters
		pending   string
		last      = "00:00"
		waiting   bool
		sawMarker bool
	)
	emit := func(start string) {
		chapters = append(chapters, models.Chapter{Title: pending, StartTime: start})
		waiting = false
	}
	for _, line := range scriptfmt.Tokenize(script) {
		marker := ""
		switch {
		case line.Kind == scriptfmt.Heading && line.Level > 1 && line.Text != "":
			if waiting {
				emit(last)
			}
			pending, waiting = line.Text, true
		case line.Kind == scriptfmt.Timestamp:
			marker = line.Text
		case line.Kind == scriptfmt.SpeakerLine && line.Marker != "":
			marker = line.Marker
		}
		if marker == "" {
			continue
		}
		sawMarker = true
		last = marker
		if waiting {
			emit(marker)
		}
	}
	if waiting {
		emit(last)
	}
	if !sawMarker {
		return nil
	}
	return chapters
}

func withRequiredKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		seen[strings.ToLower(k)] = true
	}
	for _, k := range requiredKeywords {
		if !seen[k] {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

// MetadataStore is the record access the publisher needs.
type MetadataStore interface {
	GetEpisode(ctx context.Context, id string) (*models.Episode, error)
	SaveEpisodeMetadata(ctx context.Context, meta *models.EpisodeMetadata) error
}

// Publisher generates and stores publishing copy for existing episodes.
type Publisher struct {
	LLM   TextGenerator
	Store MetadataStore
}

func NewPublisher(gen TextGenerator, store MetadataStore) *Publisher {
	return &Publisher{LLM: gen, Store: store}
}

// GenerateMetadata regenerates the metadata for one episode and saves it.
func (p *Publisher) GenerateMetadata(ctx context.Context, episodeID string) (*models.EpisodeMetadata, error) {
	episode, err := p.Store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	meta, err := Describe(ctx, p.LLM, episode)
	if err != nil {
		log.Printf("Metadata generation failed for episode %s: %v", episodeID, err)
		return nil, apperr.Stage(StageMetadata, err)
	}
	if err := p.Store.SaveEpisodeMetadata(ctx, meta); err != nil {
		return nil, apperr.Stage(StageMetadata, err)
	}
	log.Printf("Saved metadata for episode %s: %d keywords, %d chapters", episodeID, len(meta.Keywords), len(meta.Chapters))
	return meta, nil
}
