package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"energy-debates/internal/apperr"
	"energy-debates/internal/llm"
	"energy-debates/internal/models"
	"energy-debates/internal/scriptfmt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLLM answers each stage by recognizing its prompt.
type fakeLLM struct {
	mu       sync.Mutex
	prompts  []string
	analysis string
	insights string
	outline  string
	script   string
	metadata string
	failOn   string
	err      error
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, c llm.Constraints) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)

	stage := ""
	switch {
	case strings.Contains(prompt, "preparing a podcast brief"):
		stage = StageAnalyze
	case strings.Contains(prompt, "senior energy economist"):
		stage = StageExpand
	case strings.Contains(prompt, "Create a podcast script outline"):
		stage = StageOutline
	case strings.Contains(prompt, "Write the complete podcast script"):
		stage = StageRender
	case strings.Contains(prompt, "Generate podcast episode metadata"):
		stage = StageMetadata
	default:
		return "", fmt.Errorf("unexpected prompt: %.40s", prompt)
	}
	if stage == f.failOn {
		return "", f.err
	}
	switch stage {
	case StageAnalyze:
		return f.analysis, nil
	case StageExpand:
		return f.insights, nil
	case StageOutline:
		return f.outline, nil
	case StageMetadata:
		return f.metadata, nil
	default:
		return f.script, nil
	}
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

const (
	pjmAnalysis = `{"key_facts":["Data center load in PJM is rising 20% yearly."],"main_arguments":["Load growth strains capacity"],"stakeholders":["utilities"],"controversy_points":["Who pays for new transmission"],"regulatory_hooks":["FERC capacity market rules"]}`
	pjmInsights = "```json\n" + `{"utilities":["IRPs need a rewrite"],"consumers":["Bills rise"],"startups":[],"regulatory":["Capacity auction reform"],"expert_questions":["What is the cost allocation?"]}` + "\n```"
	pjmOutline  = `{"cold_open":"Doug complains about the heat","intro":"Doug sets up PJM load growth","segments":[{"topic":"Load","doug_position":"Markets will respond","claire_counter":"Data shows a shortfall","agreement_point":"Transmission is slow"}],"close":"Takeaways"}`
	pjmScript   = "## Cold Open\n[00:00]\nDOUG: Well now. PJM is hot.\nCLAIRE: [laughs] The data actually shows 20% growth.\n[05:00]\nDOUG: I've seen this movie before."
)

func newPJMFake() *fakeLLM {
	return &fakeLLM{analysis: pjmAnalysis, insights: pjmInsights, outline: pjmOutline, script: pjmScript}
}

func pjmBlog() *models.Blog {
	return &models.Blog{ID: "blog-1", Title: "PJM Load", Content: "Data center load in PJM is rising 20% yearly."}
}

func TestGeneratePJMScenario(t *testing.T) {
	fake := newPJMFake()
	gen := NewGenerator(fake, models.DefaultCast())

	settings := models.GenerationSettings{Duration: models.DurationShort, HumorLevel: 2, FocusAreas: []string{}}
	episode, err := gen.Generate(context.Background(), pjmBlog(), settings, "")
	require.NoError(t, err)

	stats := scriptfmt.Count(episode.Script)
	assert.GreaterOrEqual(t, stats.Doug, 1)
	assert.GreaterOrEqual(t, stats.Claire, 1)
	assert.Equal(t, 10, episode.DurationEstimate)
	assert.Equal(t, 2, episode.HumorLevel)
	assert.Equal(t, "Energy Debates: PJM Load", episode.Title)
	assert.Equal(t, "blog-1", episode.BlogID)
	assert.Equal(t, []string{"IRPs need a rewrite"}, episode.Insights.Utilities)
	assert.Equal(t, []string{}, episode.Insights.Startups)
	assert.NotEmpty(t, episode.Summary)
	assert.Equal(t, 4, fake.calls())

	renderPrompt := fake.prompts[3]
	assert.Contains(t, renderPrompt, "10 minutes of dialogue (roughly 1500 words)")
	assert.Contains(t, renderPrompt, "HUMOR LEVEL: 2/5")
	assert.Contains(t, fake.prompts[2], firstEpisodeSummary)
}

func TestGenerateRejectsInvalidSettingsBeforeAnyCall(t *testing.T) {
	fake := newPJMFake()
	gen := NewGenerator(fake, models.DefaultCast())

	_, err := gen.Generate(context.Background(), pjmBlog(), models.GenerationSettings{Duration: "epic", HumorLevel: 3}, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = gen.Generate(context.Background(), pjmBlog(), models.GenerationSettings{Duration: models.DurationLong, HumorLevel: 9}, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = gen.Generate(context.Background(), &models.Blog{Content: "  "}, models.DefaultGenerationSettings(), "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.Equal(t, 0, fake.calls())
}

func TestGenerateNamesFailingStage(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeLLM)
		stage  string
		target error
	}{
		{
			name:   "analysis not json",
			mutate: func(f *fakeLLM) { f.analysis = "Sure! Here are the facts." },
			stage:  StageAnalyze,
			target: apperr.ErrMalformedOutput,
		},
		{
			name:   "analysis is an array",
			mutate: func(f *fakeLLM) { f.analysis = `["a","b"]` },
			stage:  StageAnalyze,
			target: apperr.ErrMalformedOutput,
		},
		{
			name: "expansion remote failure",
			mutate: func(f *fakeLLM) {
				f.failOn = StageExpand
				f.err = fmt.Errorf("llm generate: %w", apperr.ErrRemoteService)
			},
			stage:  StageExpand,
			target: apperr.ErrRemoteService,
		},
		{
			name:   "outline without segments",
			mutate: func(f *fakeLLM) { f.outline = `{"cold_open":"hi","segments":[]}` },
			stage:  StageOutline,
			target: apperr.ErrMalformedOutput,
		},
		{
			name:   "script without labels",
			mutate: func(f *fakeLLM) { f.script = "Once upon a time there was a grid." },
			stage:  StageRender,
			target: apperr.ErrMalformedOutput,
		},
		{
			name:   "one-sided script",
			mutate: func(f *fakeLLM) { f.script = "DOUG: Just me.\nDOUG: Still me." },
			stage:  StageRender,
			target: apperr.ErrMalformedOutput,
		},
		{
			name: "rate limited render",
			mutate: func(f *fakeLLM) {
				f.failOn = StageRender
				f.err = fmt.Errorf("llm generate: %w", apperr.ErrRateLimited)
			},
			stage:  StageRender,
			target: apperr.ErrRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newPJMFake()
			tt.mutate(fake)

			episode, err := NewGenerator(fake, models.DefaultCast()).Generate(context.Background(), pjmBlog(), models.DefaultGenerationSettings(), "")
			require.Error(t, err)
			assert.Nil(t, episode)
			assert.Equal(t, tt.stage, apperr.StageOf(err))
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestAnalyzeCoercesMissingKeys(t *testing.T) {
	fake := &fakeLLM{analysis: `{"key_facts":"Only one fact","stakeholders":null}`}
	analysis, err := Analyze(context.Background(), fake, "content")
	require.NoError(t, err)
	assert.Equal(t, []string{"Only one fact"}, analysis.KeyFacts)
	assert.Equal(t, []string{}, analysis.MainArguments)
	assert.Equal(t, []string{}, analysis.Stakeholders)
	assert.Equal(t, []string{}, analysis.RegulatoryHooks)
}

func TestExpandWithNoFactsSkipsRemoteCall(t *testing.T) {
	fake := &fakeLLM{}
	insights, err := Expand(context.Background(), fake, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, fake.calls())
	assert.Equal(t, []string{}, insights.Utilities)
	assert.Equal(t, []string{}, insights.Consumers)
	assert.Equal(t, []string{}, insights.Startups)
	assert.Equal(t, []string{}, insights.Regulatory)

	insights, err = Expand(context.Background(), fake, []string{" ", ""})
	require.NoError(t, err)
	assert.Equal(t, 0, fake.calls())
	assert.Empty(t, insights.Utilities)
}

func TestBuildOutlineCallbackAndRoundup(t *testing.T) {
	fake := &fakeLLM{outline: pjmOutline}
	insights := models.Insights{
		Utilities:  []string{"u1"},
		Consumers:  []string{},
		Startups:   []string{"s1"},
		Regulatory: []string{"r1", "r2"},
	}

	outline, err := BuildOutline(context.Background(), fake, models.DefaultCast(), OutlineInput{
		Title:           "PJM",
		Insights:        insights,
		Settings:        models.GenerationSettings{Duration: models.DurationShort, HumorLevel: 3, FocusAreas: []string{"Consumers", "nuclear"}},
		PreviousSummary: "Doug said markets sort it out.",
	})
	require.NoError(t, err)

	assert.Equal(t, "Doug said markets sort it out.", outline.Callback)
	assert.Contains(t, outline.ColdOpen, "Doug said markets sort it out.")
	assert.Equal(t, []string{"consumers"}, outline.Emphasis)

	require.Len(t, outline.StakeholderRoundup, 3)
	assert.Equal(t, "utilities", outline.StakeholderRoundup[0].Category)
	assert.Equal(t, "startups", outline.StakeholderRoundup[1].Category)
	assert.Equal(t, []string{"r1", "r2"}, outline.StakeholderRoundup[2].Points)

	assert.Contains(t, fake.prompts[0], "Doug said markets sort it out.")
	assert.Contains(t, fake.prompts[0], "Doug Morrison")
}

func TestBuildOutlineFirstEpisode(t *testing.T) {
	fake := &fakeLLM{outline: pjmOutline}
	outline, err := BuildOutline(context.Background(), fake, models.DefaultCast(), OutlineInput{Title: "PJM"})
	require.NoError(t, err)
	assert.Empty(t, outline.Callback)
	assert.Equal(t, "Doug complains about the heat", outline.ColdOpen)
	assert.Equal(t, []string{}, outline.Emphasis)
	assert.Equal(t, []models.RoundupCategory{}, outline.StakeholderRoundup)
}

func TestRenderUsesInjectedCast(t *testing.T) {
	cast := models.DefaultCast()
	cast.Doug.Name = "Douglas Testperson"
	fake := &fakeLLM{script: pjmScript}

	_, err := Render(context.Background(), fake, cast, models.Outline{ColdOpen: "x"}, models.GenerationSettings{Duration: models.DurationLong, HumorLevel: 5})
	require.NoError(t, err)
	assert.Contains(t, fake.prompts[0], "Douglas Testperson")
	assert.Contains(t, fake.prompts[0], "30 minutes of dialogue (roughly 4500 words)")
	assert.Equal(t, "Doug Morrison", models.DefaultCast().Doug.Name)
}

func TestRenderAcceptsTimestampedTurns(t *testing.T) {
	fake := &fakeLLM{script: "[00:00] DOUG: Hello.\nCLAIRE: Hi."}

	script, err := Render(context.Background(), fake, models.DefaultCast(), models.Outline{ColdOpen: "x"}, models.GenerationSettings{Duration: models.DurationShort, HumorLevel: 3})
	require.NoError(t, err)
	assert.Equal(t, "[00:00] DOUG: Hello.\nCLAIRE: Hi.", script)
}

func TestCleanScriptDropsPreambleAndFence(t *testing.T) {
	reply := "```\nHere is your script:\n\n[00:00]\nDOUG: Hi.\nCLAIRE: Hello.\n```"
	assert.Equal(t, "[00:00]\nDOUG: Hi.\nCLAIRE: Hello.", cleanScript(reply))
}

func TestSummarize(t *testing.T) {
	summary := Summarize(pjmScript)
	assert.Equal(t, `Covered: Cold Open. Doug said: "Well now." Claire said: "The data actually shows 20% growth."`, summary)
	assert.Equal(t, summary, Summarize(pjmScript))

	assert.Equal(t, "", Summarize("   "))
	assert.Equal(t, "[00:00]", Summarize("[00:00]"))

	long := "DOUG: " + strings.Repeat("word ", 300)
	assert.LessOrEqual(t, len([]rune(Summarize(long))), summaryMaxRunes)
}

func TestAssemble(t *testing.T) {
	settings := models.GenerationSettings{Duration: models.DurationMedium, HumorLevel: 4}
	episode, err := Assemble(pjmBlog(), settings, models.Insights{}, pjmScript)
	require.NoError(t, err)
	assert.Equal(t, 20, episode.DurationEstimate)
	assert.Equal(t, []string{}, []string(episode.FocusAreas))
	assert.Equal(t, []string{}, episode.Insights.Utilities)

	_, err = Assemble(pjmBlog(), settings, models.Insights{}, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

type fakeStore struct {
	blogs     map[string]*models.Blog
	latest    string
	created   []*models.Episode
	createErr error
}

func (s *fakeStore) GetBlog(ctx context.Context, id string) (*models.Blog, error) {
	blog, ok := s.blogs[id]
	if !ok {
		return nil, fmt.Errorf("blog %s: %w", id, apperr.ErrNotFound)
	}
	return blog, nil
}

func (s *fakeStore) LatestEpisodeSummary(ctx context.Context) (string, error) {
	return s.latest, nil
}

func (s *fakeStore) CreateEpisode(ctx context.Context, episode *models.Episode) error {
	if s.createErr != nil {
		return s.createErr
	}
	episode.ID = fmt.Sprintf("ep-%d", len(s.created)+1)
	s.created = append(s.created, episode)
	return nil
}

func TestServiceGenerateEpisode(t *testing.T) {
	fake := newPJMFake()
	store := &fakeStore{blogs: map[string]*models.Blog{"blog-1": pjmBlog()}, latest: "Last week Claire won the bet."}
	svc := NewService(NewGenerator(fake, models.DefaultCast()), store)

	episode, err := svc.GenerateEpisode(context.Background(), "blog-1", models.DefaultGenerationSettings())
	require.NoError(t, err)
	assert.Equal(t, "ep-1", episode.ID)
	require.Len(t, store.created, 1)
	assert.Contains(t, fake.prompts[2], "Last week Claire won the bet.")

	_, err = svc.GenerateEpisode(context.Background(), "missing", models.DefaultGenerationSettings())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestServiceDoesNotPersistOnFailure(t *testing.T) {
	fake := newPJMFake()
	fake.script = "DOUG: alone"
	store := &fakeStore{blogs: map[string]*models.Blog{"blog-1": pjmBlog()}}
	svc := NewService(NewGenerator(fake, models.DefaultCast()), store)

	_, err := svc.GenerateEpisode(context.Background(), "blog-1", models.DefaultGenerationSettings())
	require.Error(t, err)
	assert.Empty(t, store.created)

	store.createErr = errors.New("connection reset")
	fake.script = pjmScript
	_, err = svc.GenerateEpisode(context.Background(), "blog-1", models.DefaultGenerationSettings())
	assert.Equal(t, StageAssemble, apperr.StageOf(err))
}

const pjmMetadata = `{"description":"Doug and Claire argue about PJM load growth.","keywords":["pjm","Energy Policy","data centers"],"chapters":[{"title":"Intro","start_time":"00:00"},{"title":"","start_time":"01:00"},{"title":"Outro","start_time":"late"}],"search_terms":"power grid"}`

func TestScriptChapters(t *testing.T) {
	chapters := ScriptChapters("# Energy Debates\n## Cold Open\n[00:00]\nDOUG: Hi.\n## Load Growth\n[05:00] CLAIRE: The data.\n## Close\nDOUG: Bye.")
	assert.Equal(t, models.Chapters{
		{Title: "Cold Open", StartTime: "00:00"},
		{Title: "Load Growth", StartTime: "05:00"},
		{Title: "Close", StartTime: "05:00"},
	}, chapters)

	assert.Nil(t, ScriptChapters("## Cold Open\nDOUG: Hi."))
}

func TestDescribeUsesScriptTiming(t *testing.T) {
	fake := &fakeLLM{metadata: pjmMetadata}
	episode := &models.Episode{ID: "ep-1", Title: "Energy Debates: PJM Load", Script: pjmScript, Summary: "Covered: Cold Open."}

	meta, err := Describe(context.Background(), fake, episode)
	require.NoError(t, err)
	assert.Equal(t, "ep-1", meta.EpisodeID)
	assert.Equal(t, "Energy Debates: PJM Load", meta.Title)
	assert.Equal(t, "Doug and Claire argue about PJM load growth.", meta.Description)
	assert.Equal(t, []string{"pjm", "Energy Policy", "data centers", "energy debates podcast"}, []string(meta.Keywords))
	assert.Equal(t, []string{"power grid"}, []string(meta.SearchTerms))
	assert.Equal(t, models.Chapters{{Title: "Cold Open", StartTime: "00:00"}}, meta.Chapters)

	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "Covered: Cold Open.")
	assert.Contains(t, prompt, "- 00:00 Cold Open")
	assert.Contains(t, prompt, attribution)
}

func TestDescribeFallsBackToModelChapters(t *testing.T) {
	fake := &fakeLLM{metadata: pjmMetadata}
	episode := &models.Episode{ID: "ep-1", Script: "DOUG: Hi.\nCLAIRE: Hello."}

	meta, err := Describe(context.Background(), fake, episode)
	require.NoError(t, err)
	assert.Equal(t, models.Chapters{{Title: "Intro", StartTime: "00:00"}}, meta.Chapters)
}

func TestDescribeRejectsBadReplies(t *testing.T) {
	episode := &models.Episode{ID: "ep-1", Script: pjmScript}

	_, err := Describe(context.Background(), &fakeLLM{metadata: `{"keywords":["a"]}`}, episode)
	assert.ErrorIs(t, err, apperr.ErrMalformedOutput)

	_, err = Describe(context.Background(), &fakeLLM{metadata: "Sure! Here is some metadata."}, episode)
	assert.ErrorIs(t, err, apperr.ErrMalformedOutput)

	fake := &fakeLLM{}
	_, err = Describe(context.Background(), fake, &models.Episode{ID: "ep-2"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 0, fake.calls())
}

type fakeMetadataStore struct {
	episodes map[string]*models.Episode
	saved    []*models.EpisodeMetadata
}

func (s *fakeMetadataStore) GetEpisode(ctx context.Context, id string) (*models.Episode, error) {
	episode, ok := s.episodes[id]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", id, apperr.ErrNotFound)
	}
	return episode, nil
}

func (s *fakeMetadataStore) SaveEpisodeMetadata(ctx context.Context, meta *models.EpisodeMetadata) error {
	s.saved = append(s.saved, meta)
	return nil
}

func TestPublisherGenerateMetadata(t *testing.T) {
	store := &fakeMetadataStore{episodes: map[string]*models.Episode{"ep-1": {ID: "ep-1", Script: pjmScript}}}
	publisher := NewPublisher(&fakeLLM{metadata: pjmMetadata}, store)

	meta, err := publisher.GenerateMetadata(context.Background(), "ep-1")
	require.NoError(t, err)
	require.Len(t, store.saved, 1)
	assert.Equal(t, meta, store.saved[0])

	_, err = publisher.GenerateMetadata(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	publisher.LLM = &fakeLLM{failOn: StageMetadata, err: fmt.Errorf("llm: %w", apperr.ErrRemoteService)}
	_, err = publisher.GenerateMetadata(context.Background(), "ep-1")
	assert.ErrorIs(t, err, apperr.ErrRemoteService)
	assert.Equal(t, StageMetadata, apperr.StageOf(err))
	assert.Len(t, store.saved, 1)
}
