package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the voice agent service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	LogLevel  string
	LogFormat string

	SessionRetention time.Duration

	StoreDriver string
	DatabaseURL string
	SQLitePath  string
	AgentsFile  string

	VoiceProvider string

	DeepgramAPIKey     string
	DeepgramBaseURL    string
	DeepgramModel      string
	DeepgramSampleRate int

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	ElevenLabsAPIKey     string
	ElevenLabsBaseURL    string
	ElevenLabsTTSModelID string

	ContextMaxTurns int
	// ProviderTimeout bounds each upstream call; 0 leaves calls unbounded.
	ProviderTimeout time.Duration

	LogPreviewRunes int
	LogRedactPII    bool
}

// Load reads an optional dotenv file, then environment variables, and applies defaults.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	if err := loadEnvFile(envOrDefault("APP_ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}

	cfg := Config{
		BindAddr:             envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:     envOrDefault("APP_METRICS_NAMESPACE", "voiceagents"),
		LogLevel:             envOrDefault("APP_LOG_LEVEL", "info"),
		LogFormat:            envOrDefault("APP_LOG_FORMAT", "json"),
		StoreDriver:          strings.ToLower(stringsTrimSpace("STORE_DRIVER")),
		DatabaseURL:          stringsTrimSpace("DATABASE_URL"),
		SQLitePath:           envOrDefault("SQLITE_PATH", "voiceagents.db"),
		AgentsFile:           stringsTrimSpace("AGENTS_FILE"),
		VoiceProvider:        strings.ToLower(envOrDefault("VOICE_PROVIDER", "auto")),
		DeepgramAPIKey:       stringsTrimSpace("DEEPGRAM_API_KEY"),
		DeepgramBaseURL:      envOrDefault("DEEPGRAM_BASE_URL", "https://api.deepgram.com"),
		DeepgramModel:        envOrDefault("DEEPGRAM_MODEL", "nova-2"),
		DeepgramSampleRate:   16000,
		OpenAIAPIKey:         stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIBaseURL:        envOrDefault("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:          envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		ElevenLabsAPIKey:     stringsTrimSpace("ELEVENLABS_API_KEY"),
		ElevenLabsBaseURL:    envOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		ElevenLabsTTSModelID: envOrDefault("ELEVENLABS_TTS_MODEL_ID", "eleven_monolingual_v1"),
		ShutdownTimeout:      15 * time.Second,
		LogPreviewRunes:      120,
		LogRedactPII:         true,
	}
	var err error
	if cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.SessionRetention, err = durationFromEnv("APP_SESSION_RETENTION", cfg.SessionRetention); err != nil {
		return Config{}, err
	}
	if cfg.ProviderTimeout, err = durationFromEnv("RELAY_PROVIDER_TIMEOUT", cfg.ProviderTimeout); err != nil {
		return Config{}, err
	}
	if cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin); err != nil {
		return Config{}, err
	}
	if cfg.LogRedactPII, err = boolFromEnv("APP_LOG_REDACT_PII", cfg.LogRedactPII); err != nil {
		return Config{}, err
	}
	if cfg.DeepgramSampleRate, err = intFromEnv("DEEPGRAM_SAMPLE_RATE", cfg.DeepgramSampleRate); err != nil {
		return Config{}, err
	}
	if cfg.ContextMaxTurns, err = intFromEnv("CONTEXT_MAX_TURNS", cfg.ContextMaxTurns); err != nil {
		return Config{}, err
	}
	if cfg.LogPreviewRunes, err = intFromEnv("APP_LOG_PREVIEW_RUNES", cfg.LogPreviewRunes); err != nil {
		return Config{}, err
	}

	switch cfg.StoreDriver {
	case "", "memory", "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER must be one of memory, postgres, sqlite")
	}
	if cfg.StoreDriver == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
	}
	switch cfg.VoiceProvider {
	case "auto", "live", "mock":
	default:
		return Config{}, fmt.Errorf("VOICE_PROVIDER must be one of auto, live, mock")
	}
	if cfg.DeepgramSampleRate <= 0 {
		return Config{}, fmt.Errorf("DEEPGRAM_SAMPLE_RATE must be positive")
	}
	if cfg.ContextMaxTurns < 0 {
		return Config{}, fmt.Errorf("CONTEXT_MAX_TURNS must be >= 0")
	}
	if cfg.ProviderTimeout < 0 {
		return Config{}, fmt.Errorf("RELAY_PROVIDER_TIMEOUT must be >= 0")
	}

	return cfg, nil
}

// HasLiveCredentials reports whether every upstream provider has a key.
func (c Config) HasLiveCredentials() bool {
	return c.DeepgramAPIKey != "" && c.OpenAIAPIKey != "" && c.ElevenLabsAPIKey != ""
}

func loadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
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
