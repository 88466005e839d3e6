package tts

import (
	"fmt"
	"time"

	"github.com/dgnsrekt/hum/tts/audio"
	"github.com/dgnsrekt/hum/tts/hume"
)

// Config contains all speech pipeline options.
type Config struct {
	// APIKey authenticates against the service. Required.
	APIKey string `yaml:"api_key" env:"HUM_API_KEY"`

	// BaseURL overrides the API endpoint.
	BaseURL string `yaml:"base_url" env:"HUM_BASE_URL"`

	// ContextWindow is how many recent utterances accompany each request
	// for prosodic continuity. Zero sends no context.
	ContextWindow int `yaml:"context_window" env:"HUM_CONTEXT_WINDOW" envDefault:"3"`

	// RequestsPerMinute is the client-side rate limit. Negative disables
	// limiting entirely.
	RequestsPerMinute int `yaml:"requests_per_minute" env:"HUM_REQUESTS_PER_MINUTE" envDefault:"50"`

	// Timeout bounds each synthesis request.
	Timeout time.Duration `yaml:"timeout" env:"HUM_TIMEOUT" envDefault:"30s"`

	// SampleRate of generated audio. The service produces 24 kHz PCM.
	SampleRate int `yaml:"sample_rate" env:"HUM_SAMPLE_RATE" envDefault:"24000"`

	// Volume in [0, 1].
	Volume float64 `yaml:"volume" env:"HUM_VOLUME" envDefault:"1.0"`

	// CacheEnabled persists generations so repeated utterances skip the
	// network.
	CacheEnabled bool `yaml:"cache" env:"HUM_CACHE" envDefault:"true"`

	// CacheDir overrides the cache location. Empty uses ~/.cache/hum.
	CacheDir string `yaml:"cache_dir" env:"HUM_CACHE_DIR"`
}

// DefaultConfig returns a Config with sensible defaults. The API key must
// still be supplied.
func DefaultConfig() Config {
	return Config{
		BaseURL:           hume.DefaultBaseURL,
		ContextWindow:     3,
		RequestsPerMinute: hume.DefaultRequestsPerMinute,
		Timeout:           hume.DefaultTimeout,
		SampleRate:        audio.DefaultSampleRate,
		Volume:            1.0,
		CacheEnabled:      true,
	}
}

// withDefaults fills zero-valued fields so a partially specified Config
// still works.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = hume.DefaultBaseURL
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = hume.DefaultRequestsPerMinute
	}
	if c.Timeout == 0 {
		c.Timeout = hume.DefaultTimeout
	}
	if c.SampleRate == 0 {
		c.SampleRate = audio.DefaultSampleRate
	}
	if c.Volume == 0 {
		c.Volume = 1.0
	}
	return c
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.ContextWindow < 0 {
		return fmt.Errorf("context window must not be negative, got %d", c.ContextWindow)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", c.Volume)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", c.SampleRate)
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	return nil
}
