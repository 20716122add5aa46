package worker

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"energy-debates/internal/apperr"
	"energy-debates/internal/models"
	"energy-debates/internal/test"
	"energy-debates/pkg/tasks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls []string
	job   *models.AudioJob
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, jobID string) (*models.AudioJob, error) {
	f.calls = append(f.calls, jobID)
	return f.job, f.err
}

func TestHandleGenerateAudioTask(t *testing.T) {
	// 1. Setup runner that completes the job
	runner := &fakeRunner{job: &models.AudioJob{ID: "job-1", Status: models.JobComplete}}
	handler := NewTaskHandler(runner, 2*time.Hour)

	// 2. Build the task the way the API enqueues it
	task, err := tasks.NewGenerateAudioTask("job-1")
	require.NoError(t, err)

	// 3. Call the handler
	err = handler.HandleGenerateAudioTask(context.Background(), task)

	// 4. Assertions
	assert.NoError(t, err)
	assert.Equal(t, []string{"job-1"}, runner.calls)
}

func TestHandleGenerateAudioTaskRecordedFailureIsNotRetried(t *testing.T) {
	runner := &fakeRunner{
		job: &models.AudioJob{ID: "job-1", Status: models.JobFailed, Message: "partial audio"},
		err: apperr.ErrPartialAudio,
	}
	handler := NewTaskHandler(runner, 2*time.Hour)
	task, err := tasks.NewGenerateAudioTask("job-1")
	require.NoError(t, err)

	assert.NoError(t, handler.HandleGenerateAudioTask(context.Background(), task))
}

func TestHandleGenerateAudioTaskMissingJob(t *testing.T) {
	runner := &fakeRunner{err: apperr.ErrNotFound}
	handler := NewTaskHandler(runner, 2*time.Hour)
	task, err := tasks.NewGenerateAudioTask("gone")
	require.NoError(t, err)

	err = handler.HandleGenerateAudioTask(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleGenerateAudioTaskStoreUnavailable(t *testing.T) {
	runner := &fakeRunner{err: errors.New("connection refused")}
	handler := NewTaskHandler(runner, 2*time.Hour)
	task, err := tasks.NewGenerateAudioTask("job-1")
	require.NoError(t, err)

	err = handler.HandleGenerateAudioTask(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleGenerateAudioTaskBadPayload(t *testing.T) {
	runner := &fakeRunner{}
	handler := NewTaskHandler(runner, 2*time.Hour)

	err := handler.HandleGenerateAudioTask(context.Background(), asynq.NewTask(tasks.TypeGenerateAudio, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = handler.HandleGenerateAudioTask(context.Background(), asynq.NewTask(tasks.TypeGenerateAudio, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, runner.calls)
}

func TestHandleReapStaleJobsTask(t *testing.T) {
	// 1. Setup mock database
	_, mock := test.NewMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE audio_jobs")).
		WithArgs("Abandoned: no progress for 2h0m0s", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	// 2. Call the handler
	handler := NewTaskHandler(&fakeRunner{}, 2*time.Hour)
	task, err := tasks.NewReapStaleJobsTask()
	require.NoError(t, err)
	err = handler.HandleReapStaleJobsTask(context.Background(), task)

	// 3. Assertions
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleReapStaleJobsTaskError(t *testing.T) {
	handler := NewTaskHandler(&fakeRunner{}, time.Hour)
	handler.reap = func(ctx context.Context, olderThan time.Duration) (int64, error) {
		assert.Equal(t, time.Hour, olderThan)
		return 0, errors.New("db down")
	}
	task, err := tasks.NewReapStaleJobsTask()
	require.NoError(t, err)
	assert.EqualError(t, handler.HandleReapStaleJobsTask(context.Background(), task), "failed to reap stale jobs: db down")
}
