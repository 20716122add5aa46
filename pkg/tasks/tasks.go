package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeGenerateAudio    = "audio:generate"
	TypeReapStaleJobs    = "jobs:reap-stale"
	audioQueue           = "audio"
	generateAudioLimit   = 45 * time.Minute
	generateAudioRetries = 3
)

type GenerateAudioTaskPayload struct {
	JobID string `json:"job_id"`
}

// NewGenerateAudioTask builds the task that drives one audio job. A failure
// the runner records on the job completes the task; anything else, such as the
// job row being unreachable, is retried. The runner resumes from the stored
// status, so a retry never double-writes a terminal job.
func NewGenerateAudioTask(jobID string) (*asynq.Task, error) {
	payload, err := json.Marshal(GenerateAudioTaskPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGenerateAudio, payload, generateAudioOptions()...), nil
}

func generateAudioOptions() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(audioQueue),
		asynq.MaxRetry(generateAudioRetries),
		asynq.Timeout(generateAudioLimit),
		asynq.Retention(24 * time.Hour),
	}
}

func NewReapStaleJobsTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeReapStaleJobs, nil, asynq.MaxRetry(1)), nil
}
