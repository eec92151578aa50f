package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type ElevenLabsConfig struct {
	APIKey     string
	BaseURL    string
	TTSModelID string
	HTTPClient *http.Client
}

// ElevenLabsProvider synthesizes speech and lists voices.
type ElevenLabsProvider struct {
	cfg ElevenLabsConfig
}

func NewElevenLabsProvider(cfg ElevenLabsConfig) *ElevenLabsProvider {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.elevenlabs.io"
	}
	if strings.TrimSpace(cfg.TTSModelID) == "" {
		cfg.TTSModelID = "eleven_monolingual_v1"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &ElevenLabsProvider{cfg: cfg}
}

type ttsRequest struct {
	Text          string           `json:"text"`
	ModelID       string           `json:"model_id"`
	VoiceSettings ttsVoiceSettings `json:"voice_settings"`
}

type ttsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text, voiceID string, settings TTSSettings) ([]byte, error) {
	if strings.TrimSpace(voiceID) == "" {
		return nil, ErrMissingVoiceID
	}
	payload, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: p.cfg.TTSModelID,
		VoiceSettings: ttsVoiceSettings{
			Stability:       clamp01(settings.Stability),
			SimilarityBoost: clamp01(settings.SimilarityBoost),
		},
	})
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/text-to-speech/" + url.PathEscape(voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", p.cfg.APIKey)
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")

	res, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	return readProviderResponse("elevenlabs", res, 32<<20)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
