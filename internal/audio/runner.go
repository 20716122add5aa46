package audio

import (
	"context"
	"errors"
	"fmt"
	"log"

	"energy-debates/internal/models"
)

// Progress bands reported while a job runs.
const (
	progressSegmented   = 5
	progressSynthStart  = 10
	progressSynthEnd    = 60
	progressComposing   = 70
	progressComposeDone = 100
)

// Store is the record access the runner needs.
type Store interface {
	JobWriter
	GetAudioJob(ctx context.Context, id string) (*models.AudioJob, error)
	GetEpisode(ctx context.Context, id string) (*models.Episode, error)
}

// Composer merges synthesized segments into the final file.
type Composer interface {
	Compose(ctx context.Context, episode *models.Episode, segments []models.AudioSegment) (*Composition, error)
}

// Runner executes one audio job from pending to a terminal status.
type Runner struct {
	Store       Store
	Synthesizer *Synthesizer
	Compositor  Composer
}

// Run drives the job through segmenting, synthesis and composition. Every
// failure is recorded on the job; the returned error is the same failure so
// callers can log it. A job that is already terminal is returned unchanged.
func (r *Runner) Run(ctx context.Context, jobID string) (*models.AudioJob, error) {
	job, err := r.Store.GetAudioJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("load audio job %s: %w", jobID, err)
	}
	if job.Status.Terminal() {
		log.Printf("Audio job %s already %s, nothing to do", job.ID, job.Status)
		return job, nil
	}

	tracker := NewTracker(ctx, r.Store, *job)
	runErr := r.run(ctx, job, tracker)
	if runErr != nil {
		tracker.Fail(failureMessage(runErr))
	}
	final, persistErr := tracker.Close()
	if runErr != nil {
		log.Printf("Audio job %s failed: %v", job.ID, runErr)
		return &final, runErr
	}
	if persistErr != nil {
		return &final, fmt.Errorf("persist audio job %s: %w", job.ID, persistErr)
	}
	log.Printf("Audio job %s complete: %s (%ds)", final.ID, deref(final.OutputPath), derefInt(final.DurationSeconds))
	return &final, nil
}

func (r *Runner) run(ctx context.Context, job *models.AudioJob, tracker *Tracker) error {
	episode, err := r.Store.GetEpisode(ctx, job.EpisodeID)
	if err != nil {
		return fmt.Errorf("load episode %s: %w", job.EpisodeID, err)
	}

	segments := Collect(episode.Script)
	count := len(segments)
	if count == 0 {
		return ErrNoSegments
	}
	tracker.Send(Update{
		Status:       models.JobGenerating,
		Progress:     progressSegmented,
		Message:      fmt.Sprintf("Synthesizing %d segments", count),
		SegmentCount: &count,
	})

	progress := make(chan Progress)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for p := range progress {
			pct := progressSynthStart + (progressSynthEnd-progressSynthStart)*p.Done/p.Total
			tracker.Send(Update{Progress: pct, Message: fmt.Sprintf("Synthesized %d of %d segments", p.Done, p.Total)})
		}
	}()
	synthesized, err := r.Synthesizer.Synthesize(ctx, episode.ID, segments, progress)
	close(progress)
	<-forwarded
	if err != nil {
		return err
	}

	tracker.Advance(models.JobProcessing, progressComposing, "Mixing final audio")
	composition, err := r.Compositor.Compose(ctx, episode, synthesized)
	if err != nil {
		return fmt.Errorf("compose: %w", err)
	}

	tracker.Send(Update{
		Status:          models.JobComplete,
		Progress:        progressComposeDone,
		Message:         "Audio ready",
		DurationSeconds: &composition.DurationSeconds,
		OutputPath:      &composition.Path,
	})
	return nil
}

func failureMessage(err error) string {
	if errors.Is(err, ErrNoSegments) {
		return "Script has no speakable DOUG or CLAIRE lines"
	}
	return err.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
