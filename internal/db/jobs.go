package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"energy-debates/internal/apperr"
	"energy-debates/internal/models"

	"github.com/google/uuid"
)

const activeJob = "status NOT IN ('complete', 'failed')"

// StartAudioJob creates a pending job for the episode unless one is already
// active, in which case the active job is returned and created is false.
func StartAudioJob(ctx context.Context, episodeID string) (job *models.AudioJob, created bool, err error) {
	job, err = activeAudioJob(ctx, episodeID)
	if err == nil {
		return job, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	job = &models.AudioJob{}
	err = DB.GetContext(ctx, job,
		`INSERT INTO audio_jobs (id, episode_id, status, progress, message)
		 VALUES ($1, $2, 'pending', 0, 'Queued')
		 RETURNING *`,
		uuid.NewString(), episodeID)
	if err == nil {
		return job, true, nil
	}

	err = mapError(err, "start audio job for episode "+episodeID)
	if errors.Is(err, apperr.ErrConflict) {
		// lost the race against a concurrent start
		job, err = activeAudioJob(ctx, episodeID)
		return job, false, err
	}
	return nil, false, err
}

func activeAudioJob(ctx context.Context, episodeID string) (*models.AudioJob, error) {
	job := models.AudioJob{}
	err := DB.GetContext(ctx, &job,
		"SELECT * FROM audio_jobs WHERE episode_id = $1 AND "+activeJob+" LIMIT 1", episodeID)
	if err != nil {
		return nil, mapError(err, "active audio job for episode "+episodeID)
	}
	return &job, nil
}

func GetAudioJob(ctx context.Context, id string) (*models.AudioJob, error) {
	job := models.AudioJob{}
	err := DB.GetContext(ctx, &job, "SELECT * FROM audio_jobs WHERE id = $1", id)
	if err != nil {
		return nil, mapError(err, "get audio job "+id)
	}
	return &job, nil
}

// GetLatestAudioJobForEpisode returns the most recently created job of an episode.
func GetLatestAudioJobForEpisode(ctx context.Context, episodeID string) (*models.AudioJob, error) {
	job := models.AudioJob{}
	err := DB.GetContext(ctx, &job,
		"SELECT * FROM audio_jobs WHERE episode_id = $1 ORDER BY created_at DESC LIMIT 1", episodeID)
	if err != nil {
		return nil, mapError(err, "latest audio job for episode "+episodeID)
	}
	return &job, nil
}

// UpdateAudioJob persists a job snapshot. Rows already in a terminal status
// are never modified; such an update returns ErrConflict.
func UpdateAudioJob(ctx context.Context, job *models.AudioJob) error {
	err := DB.GetContext(ctx, &job.UpdatedAt,
		`UPDATE audio_jobs
		 SET status = $1, progress = $2, message = $3, segment_count = $4,
		     duration_seconds = $5, output_path = $6, updated_at = NOW()
		 WHERE id = $7 AND `+activeJob+`
		 RETURNING updated_at`,
		job.Status, job.Progress, job.Message, job.SegmentCount,
		job.DurationSeconds, job.OutputPath, job.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update audio job %s: %w: job is missing or already finished", job.ID, apperr.ErrConflict)
	}
	return mapError(err, "update audio job "+job.ID)
}

// ReapStaleJobs fails every active job that has not been updated since
// olderThan ago and returns how many were reaped.
func ReapStaleJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := DB.ExecContext(ctx,
		`UPDATE audio_jobs
		 SET status = 'failed', message = $1, updated_at = NOW()
		 WHERE `+activeJob+` AND updated_at < $2`,
		fmt.Sprintf("Abandoned: no progress for %s", olderThan), cutoff)
	if err != nil {
		return 0, mapError(err, "reap stale jobs")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reap stale jobs: %w", err)
	}
	return n, nil
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, apperr.ErrNotFound)
	}
	return nil
}
