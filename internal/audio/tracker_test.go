package audio

import (
	"context"
	"errors"
	"sync"
	"testing"

	"energy-debates/internal/apperr"
	"energy-debates/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	all := []models.JobStatus{models.JobPending, models.JobGenerating, models.JobProcessing, models.JobComplete, models.JobFailed}
	allowed := map[models.JobStatus][]models.JobStatus{
		models.JobPending:    {models.JobGenerating, models.JobFailed},
		models.JobGenerating: {models.JobProcessing, models.JobFailed},
		models.JobProcessing: {models.JobComplete, models.JobFailed},
		models.JobComplete:   {},
		models.JobFailed:     {},
	}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestApply(t *testing.T) {
	job := models.AudioJob{ID: "job-1", Status: models.JobPending}

	job, err := Apply(job, Update{Status: models.JobGenerating, Progress: 20, Message: "go"})
	require.NoError(t, err)
	assert.Equal(t, models.JobGenerating, job.Status)
	assert.Equal(t, 20, job.Progress)

	job, err = Apply(job, Update{Progress: 10})
	require.NoError(t, err)
	assert.Equal(t, 20, job.Progress, "progress never decreases")
	assert.Equal(t, "go", job.Message)

	_, err = Apply(job, Update{Status: models.JobComplete})
	assert.ErrorIs(t, err, apperr.ErrConflict, "generating cannot skip processing")

	job, err = Apply(job, Update{Status: models.JobProcessing, Progress: 70})
	require.NoError(t, err)
	path, duration := "episodes/ep/final.mp3", 61
	job, err = Apply(job, Update{Status: models.JobComplete, OutputPath: &path, DurationSeconds: &duration})
	require.NoError(t, err)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, path, *job.OutputPath)
	assert.Equal(t, 61, *job.DurationSeconds)

	_, err = Apply(job, Update{Status: models.JobFailed, Message: "late"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = Apply(job, Update{Progress: 50})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

type recordingWriter struct {
	mu        sync.Mutex
	snapshots []models.AudioJob
	err       error
}

func (w *recordingWriter) UpdateAudioJob(ctx context.Context, job *models.AudioJob) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshots = append(w.snapshots, *job)
	return w.err
}

func TestTrackerAppliesUpdatesInOrder(t *testing.T) {
	writer := &recordingWriter{}
	tracker := NewTracker(context.Background(), writer, models.AudioJob{ID: "job-1", Status: models.JobPending})

	tracker.Advance(models.JobGenerating, 10, "synth")
	tracker.Send(Update{Progress: 40})
	tracker.Advance(models.JobComplete, 100, "skipped processing")
	tracker.Fail("boom")
	tracker.Advance(models.JobProcessing, 90, "after failure")

	final, err := tracker.Close()
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, final.Status)
	assert.Equal(t, "boom", final.Message)
	assert.Equal(t, 40, final.Progress)

	var statuses []models.JobStatus
	for _, s := range writer.snapshots {
		statuses = append(statuses, s.Status)
	}
	assert.Equal(t, []models.JobStatus{models.JobGenerating, models.JobGenerating, models.JobFailed}, statuses)
}

func TestTrackerReportsPersistError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("db down")}
	tracker := NewTracker(context.Background(), writer, models.AudioJob{ID: "job-1", Status: models.JobPending})
	tracker.Fail("x")
	final, err := tracker.Close()
	assert.EqualError(t, err, "db down")
	assert.Equal(t, models.JobFailed, final.Status)
}
