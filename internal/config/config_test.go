package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want :8080", cfg.BindAddr)
	}
	if cfg.VoiceProvider != "auto" {
		t.Fatalf("VoiceProvider = %q, want auto", cfg.VoiceProvider)
	}
	if cfg.ContextMaxTurns != 0 || cfg.ProviderTimeout != 0 {
		t.Fatalf("context/provider limits should default to unbounded: %+v", cfg)
	}
	if cfg.SessionRetention != 0 {
		t.Fatalf("SessionRetention = %v, want 0 (keep completed sessions)", cfg.SessionRetention)
	}
	if cfg.HasLiveCredentials() {
		t.Fatalf("HasLiveCredentials() = true with no keys")
	}
}

func TestLoadReadsEnvFileWithoutOverriding(t *testing.T) {
	setCoreEnvEmpty(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "APP_BIND_ADDR=:7070\nOPENAI_MODEL=from-file\nCONTEXT_MAX_TURNS=6\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("APP_ENV_FILE", path)
	t.Setenv("OPENAI_MODEL", "from-env")
	// godotenv only fills variables that are absent, not merely empty.
	for _, key := range []string{"APP_BIND_ADDR", "CONTEXT_MAX_TURNS"} {
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("Unsetenv(%s) error = %v", key, err)
		}
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":7070" {
		t.Fatalf("BindAddr = %q, want :7070 from file", cfg.BindAddr)
	}
	if cfg.OpenAIModel != "from-env" {
		t.Fatalf("OpenAIModel = %q, want env to win", cfg.OpenAIModel)
	}
	if cfg.ContextMaxTurns != 6 {
		t.Fatalf("ContextMaxTurns = %d, want 6", cfg.ContextMaxTurns)
	}
}

func TestLoadMissingEnvFileIgnored(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	if _, err := Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestLoadParsesDurations(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("RELAY_PROVIDER_TIMEOUT", "20s")
	t.Setenv("APP_SESSION_RETENTION", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ProviderTimeout != 20*time.Second || cfg.SessionRetention != time.Hour {
		t.Fatalf("durations = %v, %v", cfg.ProviderTimeout, cfg.SessionRetention)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"STORE_DRIVER":         "redis",
		"VOICE_PROVIDER":       "local",
		"CONTEXT_MAX_TURNS":    "-1",
		"APP_ALLOW_ANY_ORIGIN": "maybe",
		"DEEPGRAM_SAMPLE_RATE": "0",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() expected error for %s=%s", key, value)
			}
		})
	}
}

func TestLoadPostgresNeedsURL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("STORE_DRIVER", "postgres")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() expected error without DATABASE_URL")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_ENV_FILE",
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_LOG_LEVEL",
		"APP_LOG_FORMAT",
		"APP_LOG_REDACT_PII",
		"APP_LOG_PREVIEW_RUNES",
		"APP_SESSION_RETENTION",
		"STORE_DRIVER",
		"DATABASE_URL",
		"SQLITE_PATH",
		"AGENTS_FILE",
		"VOICE_PROVIDER",
		"DEEPGRAM_API_KEY",
		"DEEPGRAM_BASE_URL",
		"DEEPGRAM_MODEL",
		"DEEPGRAM_SAMPLE_RATE",
		"OPENAI_API_KEY",
		"OPENAI_BASE_URL",
		"OPENAI_MODEL",
		"ELEVENLABS_API_KEY",
		"ELEVENLABS_BASE_URL",
		"ELEVENLABS_TTS_MODEL_ID",
		"CONTEXT_MAX_TURNS",
		"RELAY_PROVIDER_TIMEOUT",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
	// An empty APP_ENV_FILE falls back to .env, which must not exist here.
	t.Setenv("APP_ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
}
