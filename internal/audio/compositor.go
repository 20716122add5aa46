package audio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"energy-debates/internal/models"
	"energy-debates/internal/storage"
)

var execCommandContext = exec.CommandContext

// Mastering constants.
const (
	segmentPause    = 300 * time.Millisecond
	introCrossfade  = 1500 * time.Millisecond
	outroCrossfade  = 2000 * time.Millisecond
	loudnessTarget  = -16
	outputBitrate   = "192k"
	outputArtist    = "Energy Debates"
	outputAlbum     = "Energy Debates Podcast"
	compressorChain = "acompressor=threshold=-20dB:ratio=4:attack=5:release=50"
)

// ErrNoSegments means there is nothing to speak; an intro and outro alone are
// never exported.
var ErrNoSegments = errors.New("script has no speakable segments")

// Compositor merges synthesized segments between the intro and outro clips.
type Compositor struct {
	Store    storage.BlobStore
	IntroKey string
	OutroKey string
	FFmpeg   string
	FFprobe  string
	// TempDir is the parent for per-run scratch directories. Empty uses os.TempDir.
	TempDir string
}

// Composition is the uploaded result.
type Composition struct {
	Path            string
	DurationSeconds int
}

// Compose downloads the clips in index order, renders the episode with ffmpeg
// and uploads it under the episode's final key.
func (c *Compositor) Compose(ctx context.Context, episode *models.Episode, segments []models.AudioSegment) (*Composition, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	for i, seg := range segments {
		if seg.Index != i {
			return nil, fmt.Errorf("segments out of order: position %d has index %d", i, seg.Index)
		}
		if seg.AudioPath == "" {
			return nil, fmt.Errorf("segment %d has no audio", i)
		}
	}

	workDir, err := os.MkdirTemp(c.TempDir, "compose-"+episode.ID+"-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputs := make([]string, 0, len(segments)+2)
	intro, err := c.download(ctx, workDir, "intro.mp3", c.IntroKey)
	if err != nil {
		return nil, fmt.Errorf("intro: %w", err)
	}
	inputs = append(inputs, intro)
	for _, seg := range segments {
		local, err := c.download(ctx, workDir, fmt.Sprintf("segment_%03d.mp3", seg.Index), seg.AudioPath)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", seg.Index, err)
		}
		inputs = append(inputs, local)
	}
	outro, err := c.download(ctx, workDir, "outro.mp3", c.OutroKey)
	if err != nil {
		return nil, fmt.Errorf("outro: %w", err)
	}
	inputs = append(inputs, outro)

	output := filepath.Join(workDir, "final.mp3")
	args := ffmpegArgs(inputs, output, episode.Title)
	cmd := execCommandContext(ctx, c.ffmpeg(), args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Printf("ffmpeg failed for episode %s: %v, output: %s", episode.ID, err, tail(string(out), 2000))
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}

	duration, err := c.probeDuration(ctx, output)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	path, err := c.Store.Put(ctx, storage.FinalKey(episode.ID), data)
	if err != nil {
		return nil, fmt.Errorf("upload final audio: %w", err)
	}
	log.Printf("Episode %s: composed %d segments, %ds, %d bytes", episode.ID, len(segments), duration, len(data))
	return &Composition{Path: path, DurationSeconds: duration}, nil
}

func (c *Compositor) download(ctx context.Context, dir, name, key string) (string, error) {
	data, err := c.Store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	local := filepath.Join(dir, name)
	if err := os.WriteFile(local, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return local, nil
}

func (c *Compositor) probeDuration(ctx context.Context, file string) (int, error) {
	cmd := execCommandContext(ctx, c.ffprobe(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		file,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return int(math.Round(seconds)), nil
}

func (c *Compositor) ffmpeg() string {
	if c.FFmpeg == "" {
		return "ffmpeg"
	}
	return c.FFmpeg
}

func (c *Compositor) ffprobe() string {
	if c.FFprobe == "" {
		return "ffprobe"
	}
	return c.FFprobe
}

// ffmpegArgs builds the render command. inputs are intro, segments in index
// order, then outro.
func ffmpegArgs(inputs []string, output, title string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	args = append(args,
		"-filter_complex", filterGraph(len(inputs)-2),
		"-map", "[out]",
		"-codec:a", "libmp3lame",
		"-b:a", outputBitrate,
		"-metadata", "artist="+outputArtist,
		"-metadata", "album="+outputAlbum,
		"-metadata", "title="+title,
		output,
	)
	return args
}

// filterGraph pads every segment but the last with silence, concatenates them,
// crossfades the intro and outro in, then normalizes loudness before
// compressing.
func filterGraph(segments int) string {
	var b strings.Builder
	for i := 0; i < segments+2; i++ {
		fmt.Fprintf(&b, "[%d:a]aformat=sample_fmts=fltp:sample_rates=44100:channel_layouts=stereo[a%d];", i, i)
	}
	pad := segmentPause.Seconds()
	for i := 1; i <= segments; i++ {
		if i < segments {
			fmt.Fprintf(&b, "[a%d]apad=pad_dur=%s[s%d];", i, seconds(pad), i)
		} else {
			fmt.Fprintf(&b, "[a%d]anull[s%d];", i, i)
		}
	}
	for i := 1; i <= segments; i++ {
		fmt.Fprintf(&b, "[s%d]", i)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=0:a=1[speech];", segments)
	fmt.Fprintf(&b, "[a0][speech]acrossfade=d=%s[head];", seconds(introCrossfade.Seconds()))
	fmt.Fprintf(&b, "[head][a%d]acrossfade=d=%s[joined];", segments+1, seconds(outroCrossfade.Seconds()))
	fmt.Fprintf(&b, "[joined]loudnorm=I=%d:TP=-1.5:LRA=11,%s[out]", loudnessTarget, compressorChain)
	return b.String()
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
