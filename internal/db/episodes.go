package db

import (
	"context"
	"time"

	"energy-debates/internal/models"

	"github.com/google/uuid"
)

// CreateEpisode inserts a fully assembled episode in one statement.
func CreateEpisode(ctx context.Context, episode *models.Episode) error {
	if episode.ID == "" {
		episode.ID = uuid.NewString()
	}
	if episode.FocusAreas == nil {
		episode.FocusAreas = []string{}
	}
	err := DB.GetContext(ctx, &episode.CreatedAt,
		`INSERT INTO episodes (id, blog_id, title, script, insights, summary, duration_estimate, humor_level, focus_areas)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		episode.ID, episode.BlogID, episode.Title, episode.Script, episode.Insights,
		episode.Summary, episode.DurationEstimate, episode.HumorLevel, episode.FocusAreas)
	return mapError(err, "create episode")
}

func GetEpisode(ctx context.Context, id string) (*models.Episode, error) {
	episode := models.Episode{}
	err := DB.GetContext(ctx, &episode, "SELECT * FROM episodes WHERE id = $1", id)
	if err != nil {
		return nil, mapError(err, "get episode "+id)
	}
	return &episode, nil
}

// ListEpisodes returns episodes newest first.
func ListEpisodes(ctx context.Context) ([]models.Episode, error) {
	episodes := []models.Episode{}
	err := DB.SelectContext(ctx, &episodes, "SELECT * FROM episodes ORDER BY created_at DESC")
	return episodes, mapError(err, "list episodes")
}

// DeleteEpisode removes an episode and, by cascade, its audio jobs.
func DeleteEpisode(ctx context.Context, id string) error {
	res, err := DB.ExecContext(ctx, "DELETE FROM episodes WHERE id = $1", id)
	if err != nil {
		return mapError(err, "delete episode "+id)
	}
	return expectOne(res, "delete episode "+id)
}

// LatestEpisodeSummary returns the summary of the most recent episode, or ""
// when none exist yet.
func LatestEpisodeSummary(ctx context.Context) (string, error) {
	summaries, err := RecentSummaries(ctx, 1)
	if err != nil || len(summaries) == 0 {
		return "", err
	}
	return summaries[0].Summary, nil
}

// EpisodeSummary is the callback material of one past episode.
type EpisodeSummary struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Summary   string    `db:"summary" json:"summary"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RecentSummaries returns up to limit episode summaries, newest first.
func RecentSummaries(ctx context.Context, limit int) ([]EpisodeSummary, error) {
	summaries := []EpisodeSummary{}
	err := DB.SelectContext(ctx, &summaries,
		"SELECT id, title, summary, created_at FROM episodes ORDER BY created_at DESC LIMIT $1", limit)
	return summaries, mapError(err, "recent summaries")
}

// PublishedEpisode is an episode together with its completed audio.
type PublishedEpisode struct {
	models.Episode
	OutputPath      string    `db:"output_path"`
	DurationSeconds int       `db:"duration_seconds"`
	PublishedAt     time.Time `db:"published_at"`
}

// ListPublishedEpisodes returns episodes that have finished audio, using the
// newest completed job of each.
func ListPublishedEpisodes(ctx context.Context, limit int) ([]PublishedEpisode, error) {
	published := []PublishedEpisode{}
	err := DB.SelectContext(ctx, &published, `
		SELECT * FROM (
			SELECT DISTINCT ON (e.id) e.*, j.output_path, j.duration_seconds, j.updated_at AS published_at
			FROM episodes e
			JOIN audio_jobs j ON j.episode_id = e.id
			WHERE j.status = 'complete' AND j.output_path IS NOT NULL AND j.duration_seconds IS NOT NULL
			ORDER BY e.id, j.updated_at DESC
		) p
		ORDER BY published_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, mapError(err, "list published episodes")
	}
	return published, nil
}
