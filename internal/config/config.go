package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config contains all runtime settings for the voice-ordering gateway.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	// ProviderTimeout bounds every hosted API call; the upstream services
	// can otherwise hang indefinitely.
	ProviderTimeout time.Duration

	IntentProvider string
	GeminiAPIKey   string
	GeminiModel    string
	GeminiBaseURL  string

	STTProvider        string
	GoogleSpeechAPIKey string
	GoogleSpeechURL    string

	TTSProvider       string
	GoogleTTSAPIKey   string
	GoogleTTSURL      string
	ElevenLabsAPIKey  string
	ElevenLabsBaseURL string
	ElevenLabsModelID string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults. Provider
// modes are validated here; missing credentials for an explicitly selected
// provider are a startup error in main, not a first-request surprise.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "bhojan"),
		AllowAnyOrigin:     false,
		IntentProvider:     strings.ToLower(envOrDefault("INTENT_PROVIDER", "auto")),
		GeminiAPIKey:       envTrimmed("GEMINI_API_KEY"),
		GeminiModel:        envOrDefault("GEMINI_MODEL_ID", "gemini-1.5-flash"),
		GeminiBaseURL:      envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		STTProvider:        strings.ToLower(envOrDefault("STT_PROVIDER", "auto")),
		GoogleSpeechAPIKey: envTrimmed("GOOGLE_SPEECH_API_KEY"),
		GoogleSpeechURL:    envOrDefault("GOOGLE_SPEECH_BASE_URL", "https://speech.googleapis.com"),
		TTSProvider:        strings.ToLower(envOrDefault("TTS_PROVIDER", "auto")),
		GoogleTTSAPIKey:    envTrimmed("GOOGLE_TTS_API_KEY"),
		GoogleTTSURL:       envOrDefault("GOOGLE_TTS_BASE_URL", "https://texttospeech.googleapis.com"),
		ElevenLabsAPIKey:   envTrimmed("ELEVENLABS_API_KEY"),
		ElevenLabsBaseURL:  envOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ElevenLabsModelID:  envOrDefault("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2"),
		DatabaseURL:        envTrimmed("DATABASE_URL"),

		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 2 * time.Minute,
		ProviderTimeout:          20 * time.Second,
	}
	// The cloud TTS credential usually ships with the speech credential set.
	if cfg.GoogleTTSAPIKey == "" {
		cfg.GoogleTTSAPIKey = cfg.GoogleSpeechAPIKey
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ProviderTimeout, err = durationFromEnv("APP_PROVIDER_TIMEOUT", cfg.ProviderTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.ProviderTimeout < time.Second {
		return Config{}, fmt.Errorf("APP_PROVIDER_TIMEOUT must be at least 1s")
	}
	if !oneOf(cfg.IntentProvider, "auto", "gemini", "mock") {
		return Config{}, fmt.Errorf("invalid INTENT_PROVIDER: %q (expected auto|gemini|mock)", cfg.IntentProvider)
	}
	if !oneOf(cfg.STTProvider, "auto", "google", "mock") {
		return Config{}, fmt.Errorf("invalid STT_PROVIDER: %q (expected auto|google|mock)", cfg.STTProvider)
	}
	if !oneOf(cfg.TTSProvider, "auto", "google", "elevenlabs", "mock") {
		return Config{}, fmt.Errorf("invalid TTS_PROVIDER: %q (expected auto|google|elevenlabs|mock)", cfg.TTSProvider)
	}

	return cfg, nil
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
