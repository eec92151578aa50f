package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ent0n29/voiceagents/internal/config"
)

func TestResolveVoiceProviders(t *testing.T) {
	setup, err := resolveVoiceProviders(config.Config{VoiceProvider: "auto"})
	require.NoError(t, err)
	require.Equal(t, "mock", setup.providers.Name)
	require.Contains(t, setup.detail, "DEEPGRAM_API_KEY")

	_, err = resolveVoiceProviders(config.Config{VoiceProvider: "live", DeepgramAPIKey: "dg"})
	require.Error(t, err)

	live, err := resolveVoiceProviders(config.Config{
		VoiceProvider:    "auto",
		DeepgramAPIKey:   "dg",
		OpenAIAPIKey:     "sk",
		ElevenLabsAPIKey: "xi",
	})
	require.NoError(t, err)
	require.Equal(t, "live", live.providers.Name)
	require.NotNil(t, live.providers.Voices)

	_, err = resolveVoiceProviders(config.Config{VoiceProvider: "local"})
	require.Error(t, err)
}

func TestBuildSeedsAgentsAndServes(t *testing.T) {
	dir := t.TempDir()
	catalog := filepath.Join(dir, "agents.toml")
	require.NoError(t, os.WriteFile(catalog, []byte("[[agent]]\nid = \"7\"\nname = \"Support\"\nvoice_id = \"v1\"\n"), 0o600))

	res, err := Build(context.Background(), config.Config{
		VoiceProvider:    "mock",
		StoreDriver:      "sqlite",
		SQLitePath:       filepath.Join(dir, "voice.db"),
		AgentsFile:       catalog,
		MetricsNamespace: "test_app",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	ag, err := res.Agents.Get(context.Background(), "7")
	require.NoError(t, err)
	require.Equal(t, "v1", ag.VoiceID)
	require.Equal(t, "mock", res.Voice.Provider)

	rec := httptest.NewRecorder()
	res.API.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestBuildRejectsBadCatalog(t *testing.T) {
	_, err := Build(context.Background(), config.Config{
		VoiceProvider: "mock",
		AgentsFile:    filepath.Join(t.TempDir(), "missing.toml"),
	}, nil)
	require.Error(t, err)
}
