package audio

import (
	"context"
	"errors"
	"fmt"
	"log"

	"energy-debates/internal/apperr"
	"energy-debates/internal/models"
	"energy-debates/internal/storage"
	"energy-debates/internal/tts"

	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// SpeechSynthesizer is the speech-synthesis capability. *tts.Client satisfies it.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, voiceID, text string, profile tts.VoiceProfile) ([]byte, error)
}

// Synthesizer renders every segment to its own blob.
type Synthesizer struct {
	TTS     SpeechSynthesizer
	Store   storage.BlobStore
	Voices  map[models.Speaker]string
	Profile tts.VoiceProfile
	Workers int
}

// Progress reports completed segments out of the total.
type Progress struct {
	Done  int
	Total int
}

// SegmentError records why one segment could not be synthesized.
type SegmentError struct {
	Index int
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d: %v", e.Index, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}

// Synthesize fans segments out to at most Workers concurrent calls. Results are
// stored by segment index, so completion order never affects the returned
// order. Segments already present in the store are not synthesized again. A
// failing segment does not stop the others; once all have finished, any
// failure is reported as apperr.ErrPartialAudio.
//
// progress, when non-nil, receives one update per finished segment.
func (s *Synthesizer) Synthesize(ctx context.Context, episodeID string, segments []models.AudioSegment, progress chan<- Progress) ([]models.AudioSegment, error) {
	for i, seg := range segments {
		if seg.Index != i {
			return nil, fmt.Errorf("segment at position %d has index %d", i, seg.Index)
		}
		if _, ok := s.Voices[seg.Speaker]; !ok {
			return nil, apperr.Validation("no voice configured for speaker %q", seg.Speaker)
		}
	}

	workers := s.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	results := make([]models.AudioSegment, len(segments))
	failures := make([]error, len(segments))
	done := make(chan struct{}, len(segments))

	var g errgroup.Group
	g.SetLimit(workers)

	reported := make(chan struct{})
	go func() {
		defer close(reported)
		count := 0
		for range done {
			count++
			if progress != nil {
				progress <- Progress{Done: count, Total: len(segments)}
			}
		}
	}()

	for _, seg := range segments {
		g.Go(func() error {
			defer func() { done <- struct{}{} }()
			path, err := s.synthesizeOne(ctx, episodeID, seg)
			if err != nil {
				failures[seg.Index] = &SegmentError{Index: seg.Index, Err: err}
				return nil
			}
			seg.AudioPath = path
			results[seg.Index] = seg
			return nil
		})
	}
	g.Wait()
	close(done)
	<-reported

	var failed []error
	for _, err := range failures {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		log.Printf("Episode %s: %d of %d segments failed", episodeID, len(failed), len(segments))
		return nil, fmt.Errorf("%w: %d of %d segments failed: %w", apperr.ErrPartialAudio, len(failed), len(segments), errors.Join(failed...))
	}
	return results, nil
}

func (s *Synthesizer) synthesizeOne(ctx context.Context, episodeID string, seg models.AudioSegment) (string, error) {
	key := storage.SegmentKey(episodeID, seg.Index)
	exists, err := s.Store.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		return key, nil
	}

	audio, err := s.TTS.Synthesize(ctx, s.Voices[seg.Speaker], seg.Text, s.Profile)
	if err != nil {
		return "", err
	}
	return s.Store.Put(ctx, key, audio)
}
