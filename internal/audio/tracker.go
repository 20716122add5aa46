package audio

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"energy-debates/internal/apperr"
	"energy-debates/internal/models"
)

var transitions = map[models.JobStatus][]models.JobStatus{
	models.JobPending:    {models.JobGenerating, models.JobFailed},
	models.JobGenerating: {models.JobProcessing, models.JobFailed},
	models.JobProcessing: {models.JobComplete, models.JobFailed},
}

// CanTransition reports whether a job may move from one status to another.
// Terminal statuses have no outgoing transitions.
func CanTransition(from, to models.JobStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Update is one change to an audio job. An empty Status keeps the current one.
type Update struct {
	Status          models.JobStatus
	Progress        int
	Message         string
	SegmentCount    *int
	DurationSeconds *int
	OutputPath      *string
}

// Apply returns job with u applied. Progress never moves backwards.
func Apply(job models.AudioJob, u Update) (models.AudioJob, error) {
	if job.Status.Terminal() {
		return job, fmt.Errorf("job %s is %s: %w", job.ID, job.Status, apperr.ErrConflict)
	}
	if u.Status != "" && u.Status != job.Status {
		if !CanTransition(job.Status, u.Status) {
			return job, fmt.Errorf("job %s: %s -> %s not allowed: %w", job.ID, job.Status, u.Status, apperr.ErrConflict)
		}
		job.Status = u.Status
	}
	if u.Progress > job.Progress {
		job.Progress = min(u.Progress, 100)
	}
	if job.Status == models.JobComplete {
		job.Progress = 100
	}
	if u.Message != "" {
		job.Message = u.Message
	}
	if u.SegmentCount != nil {
		job.SegmentCount = *u.SegmentCount
	}
	if u.DurationSeconds != nil {
		d := *u.DurationSeconds
		job.DurationSeconds = &d
	}
	if u.OutputPath != nil {
		p := *u.OutputPath
		job.OutputPath = &p
	}
	return job, nil
}

// JobWriter persists job snapshots. Implementations must refuse to modify a
// row that is already terminal.
type JobWriter interface {
	UpdateAudioJob(ctx context.Context, job *models.AudioJob) error
}

// Tracker is the single writer for one audio job. Pipeline steps send updates
// on a channel; one goroutine applies and persists them in order.
type Tracker struct {
	store   JobWriter
	updates chan Update
	done    chan struct{}

	mu      sync.Mutex
	job     models.AudioJob
	lastErr error
}

// NewTracker starts the update loop for job. Call Close when the pipeline ends.
func NewTracker(ctx context.Context, store JobWriter, job models.AudioJob) *Tracker {
	t := &Tracker{
		store:   store,
		updates: make(chan Update, 16),
		done:    make(chan struct{}),
		job:     job,
	}
	go t.loop(ctx)
	return t
}

func (t *Tracker) loop(ctx context.Context) {
	defer close(t.done)
	for u := range t.updates {
		t.mu.Lock()
		next, err := Apply(t.job, u)
		if err != nil {
			t.mu.Unlock()
			log.Printf("Ignoring audio job update: %v", err)
			continue
		}
		next.UpdatedAt = time.Now()
		t.job = next
		snapshot := next
		t.mu.Unlock()

		// persist on a context that outlives caller cancellation so failures are recorded
		if err := t.store.UpdateAudioJob(context.WithoutCancel(ctx), &snapshot); err != nil {
			log.Printf("Failed to persist audio job %s (%s, %d%%): %v", snapshot.ID, snapshot.Status, snapshot.Progress, err)
			t.mu.Lock()
			t.lastErr = err
			t.mu.Unlock()
		}
	}
}

// Send queues an update.
func (t *Tracker) Send(u Update) {
	t.updates <- u
}

func (t *Tracker) Advance(status models.JobStatus, progress int, message string) {
	t.Send(Update{Status: status, Progress: progress, Message: message})
}

func (t *Tracker) Fail(message string) {
	t.Send(Update{Status: models.JobFailed, Message: message})
}

// Close drains pending updates and returns the final snapshot and the last
// persistence error, if any.
func (t *Tracker) Close() (models.AudioJob, error) {
	close(t.updates)
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job, t.lastErr
}
