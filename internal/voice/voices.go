package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type VoiceSummary struct {
	VoiceID  string            `json:"voice_id"`
	Name     string            `json:"name"`
	Category string            `json:"category,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
}

type VoiceLister interface {
	ListVoices(ctx context.Context) ([]VoiceSummary, error)
}

func (p *ElevenLabsProvider) ListVoices(ctx context.Context) ([]VoiceSummary, error) {
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/voices"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", p.cfg.APIKey)

	res, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs voices request: %w", err)
	}
	body, err := readProviderResponse("elevenlabs", res, 2<<20)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Voices []VoiceSummary `json:"voices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("elevenlabs: decode voices: %w", err)
	}
	out := make([]VoiceSummary, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		v.VoiceID = strings.TrimSpace(v.VoiceID)
		v.Name = strings.TrimSpace(v.Name)
		if v.VoiceID == "" {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].VoiceID < out[j].VoiceID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
