package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"energy-debates/internal/apperr"
	"energy-debates/internal/middleware"
	"energy-debates/internal/models"
	"energy-debates/internal/storage"
	"energy-debates/internal/test"
	"energy-debates/pkg/tasks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	blogID   string
	settings models.GenerationSettings
	episode  *models.Episode
	err      error
}

func (f *fakeGenerator) GenerateEpisode(ctx context.Context, blogID string, settings models.GenerationSettings) (*models.Episode, error) {
	f.blogID = blogID
	f.settings = settings
	return f.episode, f.err
}

type fakeMetadata struct {
	episodeID string
	meta      *models.EpisodeMetadata
	err       error
}

func (f *fakeMetadata) GenerateMetadata(ctx context.Context, episodeID string) (*models.EpisodeMetadata, error) {
	f.episodeID = episodeID
	return f.meta, f.err
}

var (
	episodeColumns = []string{"id", "blog_id", "title", "script", "insights", "summary", "duration_estimate", "humor_level", "focus_areas", "created_at"}
	jobColumns     = []string{"id", "episode_id", "status", "progress", "message", "segment_count", "duration_seconds", "output_path", "created_at", "updated_at"}
)

const sampleScript = "# Energy Debates\n[00:00]\nDOUG: Well now. [laughs]\nCLAIRE: The data actually shows otherwise."

func episodeRows(id string) *sqlmock.Rows {
	return sqlmock.NewRows(episodeColumns).
		AddRow(id, "blog-1", "Energy Debates: Heat", sampleScript, []byte(`{}`), "Covered", 10, 3, "{}", time.Now())
}

func jobRows(id, episodeID string, status models.JobStatus, outputPath any) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(jobColumns).AddRow(id, episodeID, string(status), 0, "Queued", 0, nil, outputPath, now, now)
}

type fixture struct {
	mock      sqlmock.Sqlmock
	enqueuer  *test.MockTaskEnqueuer
	generator *fakeGenerator
	metadata  *fakeMetadata
	blobs     *storage.Memory
	handler   http.Handler
}

func newFixture(t *testing.T) *fixture {
	_, mock := test.NewMockDB(t)
	f := &fixture{
		mock:      mock,
		enqueuer:  &test.MockTaskEnqueuer{},
		generator: &fakeGenerator{},
		metadata:  &fakeMetadata{},
		blobs:     storage.NewMemory(),
	}
	h := New(f.enqueuer, f.generator, f.metadata, f.blobs, models.DefaultCast(), "https://debates.example.com")
	f.handler = h.Router()
	return f
}

func (f *fixture) do(method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestUploadBlogMarkdownFile(t *testing.T) {
	// 1. Setup
	f := newFixture(t)
	f.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO blogs")).
		WithArgs(sqlmock.AnyArg(), "Heat Wave Hits PJM", sqlmock.AnyArg(), sqlmock.AnyArg(), "Capacity prices spike.").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	// 2. Build multipart upload
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "pjm.md")
	require.NoError(t, err)
	part.Write([]byte("---\ntitle: Heat Wave Hits PJM\nsummary: Capacity prices spike.\ntags: [pjm, capacity]\n---\nPJM set a new peak load record.\n"))
	require.NoError(t, mw.Close())

	// 3. Call
	rr := f.do(http.MethodPost, "/api/blogs", body.Bytes(), mw.FormDataContentType())

	// 4. Assertions
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var blog models.Blog
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &blog))
	assert.NotEmpty(t, blog.ID)
	assert.Equal(t, "Heat Wave Hits PJM", blog.Title)
	assert.Contains(t, blog.Content, "peak load record")
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUploadBlogJSONRequiresContent(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodPost, "/api/blogs", []byte(`{"title":"Empty","content":"   "}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Error, "content is required")
}

func TestGetBlogNotFound(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM blogs WHERE id = $1")).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	rr := f.do(http.MethodGet, "/api/blogs/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGenerateEpisodeAppliesDefaults(t *testing.T) {
	f := newFixture(t)
	f.generator.episode = &models.Episode{ID: "ep-1", Title: "Energy Debates: Heat", DurationEstimate: 10}

	rr := f.do(http.MethodPost, "/api/episodes", []byte(`{"blog_id":"blog-1","humor_level":5,"focus_areas":["utilities"]}`), "application/json")

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "blog-1", f.generator.blogID)
	assert.Equal(t, models.DurationMedium, f.generator.settings.Duration)
	assert.Equal(t, 5, f.generator.settings.HumorLevel)
	assert.Equal(t, []string{"utilities"}, f.generator.settings.FocusAreas)
}

func TestGenerateEpisodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		stage  string
	}{
		{"missing blog", `{"humor_level":3}`, nil, http.StatusBadRequest, ""},
		{"bad json", `{`, nil, http.StatusBadRequest, ""},
		{"invalid settings", `{"blog_id":"b"}`, apperr.Validation("humor_level 9 must be between 1 and 5"), http.StatusBadRequest, ""},
		{"unknown blog", `{"blog_id":"b"}`, apperr.ErrNotFound, http.StatusNotFound, ""},
		{"malformed outline", `{"blog_id":"b"}`, apperr.Stage("outline", apperr.Malformed("no segments")), http.StatusBadGateway, "outline"},
		{"rate limited", `{"blog_id":"b"}`, apperr.Stage("analyze", apperr.ErrRateLimited), http.StatusTooManyRequests, "analyze"},
		{"store down", `{"blog_id":"b"}`, errors.New("connection reset"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.generator.err = tt.err
			rr := f.do(http.MethodPost, "/api/episodes", []byte(tt.body), "application/json")
			assert.Equal(t, tt.status, rr.Code)
			resp := decodeError(t, rr)
			assert.Equal(t, tt.stage, resp.Stage)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "Internal server error", resp.Error)
			}
		})
	}
}

func TestExportEpisode(t *testing.T) {
	f := newFixture(t)
	query := regexp.QuoteMeta("SELECT * FROM episodes WHERE id = $1")

	f.mock.ExpectQuery(query).WithArgs("ep-1").WillReturnRows(episodeRows("ep-1"))
	rr := f.do(http.MethodGet, "/api/episodes/ep-1/export?format=teleprompter", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), strings.Repeat("=", 40))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "episode-ep-1-teleprompter.txt")

	f.mock.ExpectQuery(query).WithArgs("ep-1").WillReturnRows(episodeRows("ep-1"))
	rr = f.do(http.MethodGet, "/api/episodes/ep-1/export", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, sampleScript, rr.Body.String())

	f.mock.ExpectQuery(query).WithArgs("ep-1").WillReturnRows(episodeRows("ep-1"))
	rr = f.do(http.MethodGet, "/api/episodes/ep-1/export?format=pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetSegments(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM episodes WHERE id = $1")).WithArgs("ep-1").WillReturnRows(episodeRows("ep-1"))

	rr := f.do(http.MethodGet, "/api/episodes/ep-1/segments", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var segments []models.AudioSegment
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &segments))
	assert.Equal(t, []models.AudioSegment{
		{Index: 0, Speaker: models.SpeakerDoug, Text: "Well now."},
		{Index: 1, Speaker: models.SpeakerClaire, Text: "The data actually shows otherwise."},
	}, segments)
}

func expectStartAudio(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM episodes WHERE id = $1")).WithArgs("ep-1").WillReturnRows(episodeRows("ep-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM audio_jobs WHERE episode_id = $1 AND status NOT IN")).WithArgs("ep-1").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO audio_jobs")).WithArgs(sqlmock.AnyArg(), "ep-1").WillReturnRows(jobRows("job-1", "ep-1", models.JobPending, nil))
}

func TestGenerateMetadata(t *testing.T) {
	f := newFixture(t)
	f.metadata.meta = &models.EpisodeMetadata{
		EpisodeID:   "ep-1",
		Description: "Doug and Claire argue about PJM.",
		Keywords:    []string{"energy policy"},
		Chapters:    models.Chapters{{Title: "Cold Open", StartTime: "00:00"}},
	}

	rr := f.do(http.MethodPost, "/api/episodes/ep-1/metadata", nil, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "ep-1", f.metadata.episodeID)
	var meta models.EpisodeMetadata
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &meta))
	assert.Equal(t, "Doug and Claire argue about PJM.", meta.Description)
	assert.Equal(t, "00:00", meta.Chapters[0].StartTime)

	f.metadata.err = apperr.Stage("metadata", apperr.Malformed("metadata has no description"))
	rr = f.do(http.MethodPost, "/api/episodes/ep-1/metadata", nil, "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "metadata", decodeError(t, rr).Stage)
}

func TestGetMetadata(t *testing.T) {
	f := newFixture(t)
	query := regexp.QuoteMeta("SELECT * FROM episode_metadata WHERE episode_id = $1")
	f.mock.ExpectQuery(query).WithArgs("ep-1").
		WillReturnRows(sqlmock.NewRows([]string{"episode_id", "title", "description", "keywords", "chapters", "search_terms", "created_at"}).
			AddRow("ep-1", "Energy Debates: Heat", "Copy", `{"energy policy",pjm}`, []byte(`[{"title":"Intro","start_time":"00:00"}]`), `{"power grid"}`, time.Now()))

	rr := f.do(http.MethodGet, "/api/episodes/ep-1/metadata", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var meta models.EpisodeMetadata
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &meta))
	assert.Equal(t, []string{"energy policy", "pjm"}, []string(meta.Keywords))
	assert.Equal(t, models.Chapters{{Title: "Intro", StartTime: "00:00"}}, meta.Chapters)

	f.mock.ExpectQuery(query).WithArgs("ep-2").WillReturnError(sql.ErrNoRows)
	rr = f.do(http.MethodGet, "/api/episodes/ep-2/metadata", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestStartAudioEnqueuesTask(t *testing.T) {
	f := newFixture(t)
	expectStartAudio(f.mock)

	rr := f.do(http.MethodPost, "/api/episodes/ep-1/audio", nil, "")

	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	require.Len(t, f.enqueuer.EnqueuedTasks, 1)
	assert.Equal(t, tasks.TypeGenerateAudio, f.enqueuer.EnqueuedTasks[0].Type())
	var payload tasks.GenerateAudioTaskPayload
	require.NoError(t, json.Unmarshal(f.enqueuer.EnqueuedTasks[0].Payload(), &payload))
	assert.Equal(t, "job-1", payload.JobID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestStartAudioReturnsActiveJob(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM episodes WHERE id = $1")).WithArgs("ep-1").WillReturnRows(episodeRows("ep-1"))
	f.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM audio_jobs WHERE episode_id = $1 AND status NOT IN")).
		WithArgs("ep-1").WillReturnRows(jobRows("job-1", "ep-1", models.JobGenerating, nil))

	rr := f.do(http.MethodPost, "/api/episodes/ep-1/audio", nil, "")

	require.Equal(t, http.StatusOK, rr.Code)
	var job models.AudioJob
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
	assert.Equal(t, models.JobGenerating, job.Status)
	assert.Empty(t, f.enqueuer.EnqueuedTasks)
}

func TestStartAudioEnqueueFailureFailsJob(t *testing.T) {
	f := newFixture(t)
	f.enqueuer.Err = errors.New("redis unavailable")
	expectStartAudio(f.mock)
	f.mock.ExpectQuery(regexp.QuoteMeta("UPDATE audio_jobs")).
		WithArgs("failed", 0, "Could not queue audio generation", 0, nil, nil, "job-1").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))

	rr := f.do(http.MethodPost, "/api/episodes/ep-1/audio", nil, "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestStartAudioUnknownEpisode(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM episodes WHERE id = $1")).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	rr := f.do(http.MethodPost, "/api/episodes/nope/audio", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, f.enqueuer.EnqueuedTasks)
}

func TestDownloadAudio(t *testing.T) {
	f := newFixture(t)
	latest := regexp.QuoteMeta("SELECT * FROM audio_jobs WHERE episode_id = $1 ORDER BY created_at DESC LIMIT 1")

	// 1. Not ready yet
	f.mock.ExpectQuery(latest).WithArgs("ep-1").WillReturnRows(jobRows("job-1", "ep-1", models.JobProcessing, nil))
	rr := f.do(http.MethodGet, "/api/episodes/ep-1/audio/download", nil, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	// 2. Complete
	key := storage.FinalKey("ep-1")
	_, err := f.blobs.Put(context.Background(), key, []byte("mp3-bytes"))
	require.NoError(t, err)
	f.mock.ExpectQuery(latest).WithArgs("ep-1").WillReturnRows(jobRows("job-1", "ep-1", models.JobComplete, key))
	rr = f.do(http.MethodGet, "/api/episodes/ep-1/audio/download", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "mp3-bytes", rr.Body.String())
	assert.Equal(t, "audio/mpeg", rr.Header().Get("Content-Type"))
}

func TestServeAudioFile(t *testing.T) {
	f := newFixture(t)
	key := storage.FinalKey("ep-1")
	_, err := f.blobs.Put(context.Background(), key, []byte("mp3-bytes"))
	require.NoError(t, err)

	rr := f.do(http.MethodGet, "/audio/"+key, nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "mp3-bytes", rr.Body.String())

	rr = f.do(http.MethodGet, "/audio/episodes/ep-1/segments/segment_000.mp3", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetRSSFeed(t *testing.T) {
	f := newFixture(t)
	rows := sqlmock.NewRows(append(append([]string{}, episodeColumns...), "output_path", "duration_seconds", "published_at")).
		AddRow("ep-1", "blog-1", "Energy Debates: Heat", sampleScript, []byte(`{}`), "Covered: heat.", 10, 3, "{}", time.Now(), "episodes/ep-1/final.mp3", 605, time.Now())
	f.mock.ExpectQuery(`SELECT DISTINCT ON`).WithArgs(feedLimit).WillReturnRows(rows)

	rr := f.do(http.MethodGet, "/feed.xml", nil, "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/rss+xml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "https://debates.example.com/audio/episodes/ep-1/final.mp3")
	assert.Contains(t, rr.Body.String(), "Energy Debates: Heat")
}

func TestSettings(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodGet, "/api/settings/characters", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var cast models.Cast
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &cast))
	assert.Equal(t, "Doug Morrison", cast.Doug.Name)
	assert.Equal(t, "Claire Nakamura", cast.Claire.Name)

	f.mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, summary, created_at FROM episodes")).WithArgs(callbackLimit).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "summary", "created_at"}).AddRow("ep-1", "T", "Covered: heat.", time.Now()))
	rr = f.do(http.MethodGet, "/api/settings/callbacks", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Covered: heat.")

	rr = f.do(http.MethodGet, "/api/settings/defaults", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var defaults defaultsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &defaults))
	assert.Equal(t, 20, defaults.Durations["medium"])
	assert.Equal(t, 3, defaults.Settings.HumorLevel)
}

func TestRouterAppliesAPIMiddleware(t *testing.T) {
	test.NewMockDB(t)
	h := New(&test.MockTaskEnqueuer{}, &fakeGenerator{}, &fakeMetadata{}, storage.NewMemory(), models.DefaultCast(), "")
	router := h.Router(middleware.AuthMiddleware("secret"))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/settings/characters", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
