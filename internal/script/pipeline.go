package script

import (
	"context"
	"log"
	"strings"

	"energy-debates/internal/apperr"
	"energy-debates/internal/models"
)

// Generator runs one script generation end to end. It holds no state between
// runs; every call starts fresh and aborts on the first failing stage.
type Generator struct {
	LLM  TextGenerator
	Cast models.Cast
}

func NewGenerator(gen TextGenerator, cast models.Cast) *Generator {
	return &Generator{LLM: gen, Cast: cast}
}

// Generate runs analyze, expand, outline, render and assemble. The returned
// Episode is not yet persisted. Errors are *apperr.StageError.
func (g *Generator) Generate(ctx context.Context, blog *models.Blog, settings models.GenerationSettings, previousSummary string) (*models.Episode, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if blog == nil || strings.TrimSpace(blog.Content) == "" {
		return nil, apperr.Validation("blog content is empty")
	}

	log.Printf("Generating script for blog %s (%s, humor %d)", blog.ID, settings.Duration, settings.HumorLevel)

	analysis, err := Analyze(ctx, g.LLM, blog.Content)
	if err != nil {
		return nil, apperr.Stage(StageAnalyze, err)
	}
	log.Printf("Blog %s: %d key facts, %d controversy points", blog.ID, len(analysis.KeyFacts), len(analysis.ControversyPoints))

	insights, err := Expand(ctx, g.LLM, analysis.KeyFacts)
	if err != nil {
		return nil, apperr.Stage(StageExpand, err)
	}

	outline, err := BuildOutline(ctx, g.LLM, g.Cast, OutlineInput{
		Title:           blog.Title,
		Analysis:        analysis,
		Insights:        insights,
		Settings:        settings,
		PreviousSummary: previousSummary,
	})
	if err != nil {
		return nil, apperr.Stage(StageOutline, err)
	}
	log.Printf("Blog %s: outline with %d segments", blog.ID, len(outline.Segments))

	script, err := Render(ctx, g.LLM, g.Cast, outline, settings)
	if err != nil {
		return nil, apperr.Stage(StageRender, err)
	}

	episode, err := Assemble(blog, settings, insights, script)
	if err != nil {
		return nil, apperr.Stage(StageAssemble, err)
	}
	return episode, nil
}

// Store is the slice of the record store the service needs.
type Store interface {
	GetBlog(ctx context.Context, id string) (*models.Blog, error)
	LatestEpisodeSummary(ctx context.Context) (string, error)
	CreateEpisode(ctx context.Context, episode *models.Episode) error
}

// Service generates and persists episodes for stored blogs.
type Service struct {
	Generator *Generator
	Store     Store
}

func NewService(generator *Generator, store Store) *Service {
	return &Service{Generator: generator, Store: store}
}

// GenerateEpisode validates settings before any remote call, seeds the
// callback from the latest episode and persists the result in one write.
func (s *Service) GenerateEpisode(ctx context.Context, blogID string, settings models.GenerationSettings) (*models.Episode, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	blog, err := s.Store.GetBlog(ctx, blogID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(blog.Content) == "" {
		return nil, apperr.Validation("blog %s has no content", blogID)
	}

	previous, err := s.Store.LatestEpisodeSummary(ctx)
	if err != nil {
		return nil, err
	}

	episode, err := s.Generator.Generate(ctx, blog, settings, previous)
	if err != nil {
		log.Printf("Script generation failed for blog %s: %v", blogID, err)
		return nil, err
	}
	if err := s.Store.CreateEpisode(ctx, episode); err != nil {
		return nil, apperr.Stage(StageAssemble, err)
	}
	log.Printf("Created episode %s for blog %s", episode.ID, blogID)
	return episode, nil
}
