package tts

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads speech configuration from Viper, layering set
// keys over the defaults.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("api_key") {
		cfg.APIKey = viper.GetString("api_key")
	}
	if viper.IsSet("base_url") {
		cfg.BaseURL = viper.GetString("base_url")
	}
	if viper.IsSet("context_window") {
		cfg.ContextWindow = viper.GetInt("context_window")
	}
	if viper.IsSet("requests_per_minute") {
		cfg.RequestsPerMinute = viper.GetInt("requests_per_minute")
	}
	if viper.IsSet("timeout") {
		if d, err := time.ParseDuration(viper.GetString("timeout")); err == nil {
			cfg.Timeout = d
		}
	}
	if viper.IsSet("sample_rate") {
		cfg.SampleRate = viper.GetInt("sample_rate")
	}
	if viper.IsSet("volume") {
		cfg.Volume = viper.GetFloat64("volume")
	}
	if viper.IsSet("cache") {
		cfg.CacheEnabled = viper.GetBool("cache")
	}
	if viper.IsSet("cache_dir") {
		cfg.CacheDir = viper.GetString("cache_dir")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid speech configuration: %w", err)
	}
	return cfg, nil
}

// SetDefaults registers speech defaults in Viper so config files only need
// to name what they change.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("base_url", defaults.BaseURL)
	viper.SetDefault("context_window", defaults.ContextWindow)
	viper.SetDefault("requests_per_minute", defaults.RequestsPerMinute)
	viper.SetDefault("timeout", defaults.Timeout.String())
	viper.SetDefault("sample_rate", defaults.SampleRate)
	viper.SetDefault("volume", defaults.Volume)
	viper.SetDefault("cache", defaults.CacheEnabled)
	viper.SetDefault("cache_dir", "")
}
