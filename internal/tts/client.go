// Package tts is the speech-synthesis capability backed by the ElevenLabs API.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"energy-debates/internal/apperr"
	"energy-debates/internal/llm"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL        = "https://api.elevenlabs.io"
	defaultModelID        = "eleven_monolingual_v1"
	defaultHTTPTimeout    = 90 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 20 * time.Second
)

// VoiceProfile holds the fixed voice parameters sent with every request.
type VoiceProfile struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// DefaultVoiceProfile is used for both hosts. It is not user tunable.
var DefaultVoiceProfile = VoiceProfile{
	Stability:       0.5,
	SimilarityBoost: 0.75,
	Style:           0.0,
	UseSpeakerBoost: true,
}

// Config carries API credentials.
type Config struct {
	APIKey  string
	BaseURL string
	ModelID string
}

// Client synthesizes speech. It is safe for concurrent use; all callers share
// one rate limiter.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRateLimit caps outbound requests per second. Zero disables the limiter.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRetry overrides attempt count and backoff bounds.
func WithRetry(attempts int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper replaces the retry sleep, for tests.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient builds a client with default retry and no rate limit.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			ModelID: strings.TrimSpace(cfg.ModelID),
		},
		httpClient:       &http.Client{Timeout: defaultHTTPTimeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = defaultBaseURL
	}
	if c.cfg.ModelID == "" {
		c.cfg.ModelID = defaultModelID
	}
	return c
}

type synthesisRequest struct {
	Text          string       `json:"text"`
	ModelID       string       `json:"model_id"`
	VoiceSettings VoiceProfile `json:"voice_settings"`
}

type statusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Synthesize returns mp3 bytes for text spoken by voiceID.
func (c *Client) Synthesize(ctx context.Context, voiceID, text string, profile VoiceProfile) ([]byte, error) {
	voiceID = strings.TrimSpace(voiceID)
	text = strings.TrimSpace(text)
	if voiceID == "" {
		return nil, apperr.Validation("tts synthesize: voice id required")
	}
	if text == "" {
		return nil, apperr.Validation("tts synthesize: text required")
	}
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("tts synthesize: api key required: %w", apperr.ErrRemoteService)
	}

	body, err := json.Marshal(synthesisRequest{Text: text, ModelID: c.cfg.ModelID, VoiceSettings: profile})
	if err != nil {
		return nil, fmt.Errorf("tts synthesize: encode body: %w", err)
	}

	attempts := c.retryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}
		audio, err := c.sendOnce(ctx, voiceID, body)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			break
		}
		log.Printf("tts: voice %s attempt %d/%d failed, retrying in %v: %v", voiceID, attempt, attempts, delay, err)
		if err := llm.Sleep(ctx, delay, c.sleeper); err != nil {
			lastErr = err
			break
		}
	}
	return nil, classify(lastErr)
}

func (c *Client) sendOnce(ctx context.Context, voiceID string, body []byte) ([]byte, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1", "text-to-speech", voiceID)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := llm.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &statusError{StatusCode: resp.StatusCode, Body: string(raw), RetryAfter: retryAfter}
	}
	if len(raw) == 0 {
		return nil, errors.New("empty audio body")
	}
	return raw, nil
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	var se *statusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusTooManyRequests || se.StatusCode == http.StatusRequestTimeout || se.StatusCode >= http.StatusInternalServerError {
			if se.RetryAfter > 0 {
				if c.retryMaxDelay > 0 && se.RetryAfter > c.retryMaxDelay {
					return c.retryMaxDelay, true
				}
				return se.RetryAfter, true
			}
			return llm.Backoff(c.retryBaseDelay, c.retryMaxDelay, attempt), true
		}
		return 0, false
	}
	// network errors and empty bodies
	return llm.Backoff(c.retryBaseDelay, c.retryMaxDelay, attempt), true
}

func classify(err error) error {
	if err == nil {
		return fmt.Errorf("tts synthesize: unknown failure: %w", apperr.ErrRemoteService)
	}
	var se *statusError
	if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("tts synthesize: %w: %v", apperr.ErrRateLimited, err)
	}
	return fmt.Errorf("tts synthesize: %w: %v", apperr.ErrRemoteService, err)
}
