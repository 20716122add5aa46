package db

import (
	"context"

	"energy-debates/internal/models"
)

// SaveEpisodeMetadata stores the publishing copy for an episode, replacing
// any earlier version.
func SaveEpisodeMetadata(ctx context.Context, meta *models.EpisodeMetadata) error {
	if meta.Keywords == nil {
		meta.Keywords = []string{}
	}
	if meta.SearchTerms == nil {
		meta.SearchTerms = []string{}
	}
	if meta.Chapters == nil {
		meta.Chapters = models.Chapters{}
	}
	err := DB.GetContext(ctx, &meta.CreatedAt,
		`INSERT INTO episode_metadata (episode_id, title, description, keywords, chapters, search_terms)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (episode_id) DO UPDATE SET
		     title = EXCLUDED.title,
		     description = EXCLUDED.description,
		     keywords = EXCLUDED.keywords,
		     chapters = EXCLUDED.chapters,
		     search_terms = EXCLUDED.search_terms,
		     created_at = NOW()
		 RETURNING created_at`,
		meta.EpisodeID, meta.Title, meta.Description, meta.Keywords, meta.Chapters, meta.SearchTerms)
	return mapError(err, "save metadata for episode "+meta.EpisodeID)
}

func GetEpisodeMetadata(ctx context.Context, episodeID string) (*models.EpisodeMetadata, error) {
	meta := models.EpisodeMetadata{}
	err := DB.GetContext(ctx, &meta, "SELECT * FROM episode_metadata WHERE episode_id = $1", episodeID)
	if err != nil {
		return nil, mapError(err, "get metadata for episode "+episodeID)
	}
	return &meta, nil
}
