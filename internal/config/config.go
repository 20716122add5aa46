package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"energy-debates/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the server, worker and CLI read from the environment.
type Config struct {
	Port        string
	BaseURL     string
	APIToken    string
	DatabaseURL string
	RedisAddr   string

	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicBaseURL string

	ElevenLabsAPIKey   string
	ElevenLabsBaseURL  string
	ElevenLabsModel    string
	DougVoiceID        string
	ClaireVoiceID      string
	SynthesisWorkers   int
	SynthesisPerSecond float64

	StorageBackend   string
	AudioStoragePath string
	MinIOEndpoint    string
	MinIOAccessKey   string
	MinIOSecretKey   string
	MinIOBucket      string
	MinIOUseSSL      bool

	IntroKey    string
	OutroKey    string
	FFmpegPath  string
	FFprobePath string

	StaleJobAfter time.Duration

	Cast models.Cast
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file")
	}

	cfg := &Config{
		Port:        getenv("PORT", "8080"),
		BaseURL:     getenv("BASE_URL", "http://localhost:8080"),
		APIToken:    os.Getenv("API_TOKEN"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   getenv("REDIS_ADDR", "127.0.0.1:6379"),

		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   getenv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		AnthropicBaseURL: getenv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),

		ElevenLabsAPIKey:  os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsBaseURL: getenv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ElevenLabsModel:   getenv("ELEVENLABS_MODEL", "eleven_multilingual_v2"),
		DougVoiceID:       getenv("ELEVENLABS_DOUG_VOICE_ID", "pNInz6obpgDQGcFmaJgB"),
		ClaireVoiceID:     getenv("ELEVENLABS_CLAIRE_VOICE_ID", "EXAVITQu4vr4xnSDxMaL"),

		StorageBackend:   getenv("STORAGE_BACKEND", "filesystem"),
		AudioStoragePath: getenv("AUDIO_STORAGE_PATH", "audio"),
		MinIOEndpoint:    os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:   os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:   os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:      getenv("MINIO_BUCKET", "podcast-generator-assets"),

		IntroKey:    getenv("AUDIO_INTRO_KEY", "audio/intro.mp3"),
		OutroKey:    getenv("AUDIO_OUTRO_KEY", "audio/outro.mp3"),
		FFmpegPath:  getenv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath: getenv("FFPROBE_PATH", "ffprobe"),
	}

	var err error
	if cfg.SynthesisWorkers, err = getenvInt("SYNTHESIS_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.SynthesisPerSecond, err = getenvFloat("SYNTHESIS_PER_SECOND", 2); err != nil {
		return nil, err
	}
	if cfg.MinIOUseSSL, err = getenvBool("MINIO_USE_SSL", false); err != nil {
		return nil, err
	}
	if cfg.StaleJobAfter, err = getenvDuration("STALE_JOB_AFTER", 2*time.Hour); err != nil {
		return nil, err
	}

	cfg.Cast = models.DefaultCast()
	if path := os.Getenv("PERSONAS_FILE"); path != "" {
		cast, err := LoadCast(path)
		if err != nil {
			return nil, err
		}
		cfg.Cast = cast
	}

	return cfg, nil
}

// LoadCast reads host personas from a YAML file. Hosts missing from the file keep their defaults.
func LoadCast(path string) (models.Cast, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.Cast{}, fmt.Errorf("read personas file: %w", err)
	}
	return ParseCast(raw)
}

// ParseCast decodes persona YAML over the default cast.
func ParseCast(raw []byte) (models.Cast, error) {
	var override models.Cast
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return models.Cast{}, fmt.Errorf("parse personas: %w", err)
	}
	cast := models.DefaultCast()
	if override.Doug.Name != "" {
		cast.Doug = override.Doug
	}
	if override.Claire.Name != "" {
		cast.Claire = override.Claire
	}
	cast.Doug.Key = models.SpeakerDoug
	cast.Claire.Key = models.SpeakerClaire
	return cast, nil
}

// VoiceFor maps a host onto its configured synthesis voice.
func (c *Config) VoiceFor(speaker models.Speaker) string {
	switch speaker {
	case models.SpeakerDoug:
		return c.DougVoiceID
	case models.SpeakerClaire:
		return c.ClaireVoiceID
	default:
		return ""
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
