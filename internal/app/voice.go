package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ent0n29/voiceagents/internal/config"
	"github.com/ent0n29/voiceagents/internal/voice"
)

type voiceSetup struct {
	providers voice.Providers
	detail    string
}

func resolveVoiceProviders(cfg config.Config) (voiceSetup, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.VoiceProvider))
	if mode == "" {
		mode = "auto"
	}

	missing := missingCredentials(cfg)
	switch mode {
	case "live":
		if len(missing) > 0 {
			return voiceSetup{}, fmt.Errorf("VOICE_PROVIDER=live but %s not set", strings.Join(missing, ", "))
		}
		return liveSetup(cfg), nil
	case "mock":
		return voiceSetup{providers: voice.NewMockProviders(), detail: "mock"}, nil
	case "auto":
		if len(missing) == 0 {
			return liveSetup(cfg), nil
		}
		return voiceSetup{
			providers: voice.NewMockProviders(),
			detail:    fmt.Sprintf("mock (missing %s)", strings.Join(missing, ", ")),
		}, nil
	default:
		return voiceSetup{}, fmt.Errorf("invalid VOICE_PROVIDER: %q (expected auto|live|mock)", cfg.VoiceProvider)
	}
}

func liveSetup(cfg config.Config) voiceSetup {
	// A zero ProviderTimeout leaves upstream calls unbounded.
	client := &http.Client{Timeout: cfg.ProviderTimeout}
	tts := voice.NewElevenLabsProvider(voice.ElevenLabsConfig{
		APIKey:     cfg.ElevenLabsAPIKey,
		BaseURL:    cfg.ElevenLabsBaseURL,
		TTSModelID: cfg.ElevenLabsTTSModelID,
		HTTPClient: client,
	})
	return voiceSetup{
		providers: voice.Providers{
			Transcriber: voice.NewDeepgramTranscriber(voice.DeepgramConfig{
				APIKey:     cfg.DeepgramAPIKey,
				BaseURL:    cfg.DeepgramBaseURL,
				Model:      cfg.DeepgramModel,
				SampleRate: cfg.DeepgramSampleRate,
				HTTPClient: client,
			}),
			Completer: voice.NewOpenAICompleter(voice.OpenAIConfig{
				APIKey:     cfg.OpenAIAPIKey,
				BaseURL:    cfg.OpenAIBaseURL,
				Model:      cfg.OpenAIModel,
				HTTPClient: client,
			}),
			Synthesizer: tts,
			Voices:      tts,
			Name:        "live",
		},
		detail: fmt.Sprintf("live (deepgram %s, openai %s, elevenlabs %s)", cfg.DeepgramModel, cfg.OpenAIModel, cfg.ElevenLabsTTSModelID),
	}
}

func missingCredentials(cfg config.Config) []string {
	var missing []string
	if strings.TrimSpace(cfg.DeepgramAPIKey) == "" {
		missing = append(missing, "DEEPGRAM_API_KEY")
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if strings.TrimSpace(cfg.ElevenLabsAPIKey) == "" {
		missing = append(missing, "ELEVENLABS_API_KEY")
	}
	return missing
}
