// Package app builds the pipelines from configuration.
package app

import (
	"energy-debates/internal/audio"
	"energy-debates/internal/config"
	"energy-debates/internal/db"
	"energy-debates/internal/llm"
	"energy-debates/internal/models"
	"energy-debates/internal/script"
	"energy-debates/internal/storage"
	"energy-debates/internal/tts"
)

// synthesisBurst lets every worker start immediately before the limiter paces them.
const synthesisBurst = 4

func newLLMClient(cfg *config.Config) *llm.Client {
	return llm.NewClient(llm.Config{
		APIKey:  cfg.AnthropicAPIKey,
		BaseURL: cfg.AnthropicBaseURL,
		Model:   cfg.AnthropicModel,
	})
}

// NewScriptService wires the script pipeline to the Anthropic API and the database.
func NewScriptService(cfg *config.Config) *script.Service {
	return script.NewService(script.NewGenerator(newLLMClient(cfg), cfg.Cast), db.Records{})
}

// NewPublisher wires episode metadata generation to the Anthropic API and the database.
func NewPublisher(cfg *config.Config) *script.Publisher {
	return script.NewPublisher(newLLMClient(cfg), db.Records{})
}

// NewSynthesizer wires ElevenLabs voices to the blob store.
func NewSynthesizer(cfg *config.Config, blobs storage.BlobStore) *audio.Synthesizer {
	client := tts.NewClient(tts.Config{
		APIKey:  cfg.ElevenLabsAPIKey,
		BaseURL: cfg.ElevenLabsBaseURL,
		ModelID: cfg.ElevenLabsModel,
	}, tts.WithRateLimit(cfg.SynthesisPerSecond, synthesisBurst))

	return &audio.Synthesizer{
		TTS:   client,
		Store: blobs,
		Voices: map[models.Speaker]string{
			models.SpeakerDoug:   cfg.VoiceFor(models.SpeakerDoug),
			models.SpeakerClaire: cfg.VoiceFor(models.SpeakerClaire),
		},
		Profile: tts.DefaultVoiceProfile,
		Workers: cfg.SynthesisWorkers,
	}
}

// NewCompositor wires ffmpeg to the blob store.
func NewCompositor(cfg *config.Config, blobs storage.BlobStore) *audio.Compositor {
	return &audio.Compositor{
		Store:    blobs,
		IntroKey: cfg.IntroKey,
		OutroKey: cfg.OutroKey,
		FFmpeg:   cfg.FFmpegPath,
		FFprobe:  cfg.FFprobePath,
	}
}

// NewAudioRunner wires the full audio pipeline against the database.
func NewAudioRunner(cfg *config.Config, blobs storage.BlobStore) *audio.Runner {
	return &audio.Runner{
		Store:       db.Records{},
		Synthesizer: NewSynthesizer(cfg, blobs),
		Compositor:  NewCompositor(cfg, blobs),
	}
}
