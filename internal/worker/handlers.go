package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"energy-debates/internal/apperr"
	"energy-debates/internal/db"
	"energy-debates/internal/models"
	"energy-debates/pkg/tasks"

	"github.com/hibiken/asynq"
)

// JobRunner executes one audio job to a terminal status.
type JobRunner interface {
	Run(ctx context.Context, jobID string) (*models.AudioJob, error)
}

type TaskHandler struct {
	runner     JobRunner
	staleAfter time.Duration
	reap       func(ctx context.Context, olderThan time.Duration) (int64, error)
}

func NewTaskHandler(runner JobRunner, staleAfter time.Duration) *TaskHandler {
	return &TaskHandler{runner: runner, staleAfter: staleAfter, reap: db.ReapStaleJobs}
}

func (h *TaskHandler) HandleGenerateAudioTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.GenerateAudioTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.JobID == "" {
		return fmt.Errorf("task payload has no job id: %w", asynq.SkipRetry)
	}

	log.Printf("Generating audio for job %s", p.JobID)

	job, err := h.runner.Run(ctx, p.JobID)
	if err == nil {
		return nil
	}
	if job != nil && job.Status == models.JobFailed {
		// The failure is on the job row; retrying would not reset it.
		log.Printf("Audio job %s recorded as failed: %s", job.ID, job.Message)
		return nil
	}
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("audio job %s: %v: %w", p.JobID, err, asynq.SkipRetry)
	}
	return fmt.Errorf("audio job %s: %w", p.JobID, err)
}

func (h *TaskHandler) HandleReapStaleJobsTask(ctx context.Context, t *asynq.Task) error {
	n, err := h.reap(ctx, h.staleAfter)
	if err != nil {
		return fmt.Errorf("failed to reap stale jobs: %w", err)
	}
	if n > 0 {
		log.Printf("Marked %d stale audio jobs as failed", n)
	}
	return nil
}
