package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type DeepgramConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	SampleRate int
	HTTPClient *http.Client
}

// DeepgramTranscriber sends each chunk as an independent listen request.
type DeepgramTranscriber struct {
	cfg DeepgramConfig
}

func NewDeepgramTranscriber(cfg DeepgramConfig) *DeepgramTranscriber {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.deepgram.com"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "nova-2"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &DeepgramTranscriber{cfg: cfg}
}

type deepgramAlternative struct {
	Transcript string `json:"transcript"`
}

type deepgramResponse struct {
	IsFinal *bool `json:"is_final"`
	Channel *struct {
		Alternatives []deepgramAlternative `json:"alternatives"`
	} `json:"channel"`
	Results *struct {
		Channels []struct {
			Alternatives []deepgramAlternative `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (p *DeepgramTranscriber) Transcribe(ctx context.Context, audio []byte) (Transcript, error) {
	u, err := url.Parse(strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/listen")
	if err != nil {
		return Transcript{}, err
	}
	q := u.Query()
	q.Set("model", p.cfg.Model)
	q.Set("encoding", "opus")
	q.Set("sample_rate", strconv.Itoa(p.cfg.SampleRate))
	q.Set("interim_results", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(audio))
	if err != nil {
		return Transcript{}, err
	}
	req.Header.Set("Authorization", "Token "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "audio/ogg")

	res, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		return Transcript{}, fmt.Errorf("deepgram request: %w", err)
	}
	body, err := readProviderResponse("deepgram", res, 1<<20)
	if err != nil {
		return Transcript{}, err
	}
	return parseDeepgram(body)
}

// parseDeepgram accepts both the streaming shape (channel.alternatives) and the
// prerecorded shape (results.channels[0].alternatives). Prerecorded results carry
// no is_final flag and are always final.
func parseDeepgram(body []byte) (Transcript, error) {
	var parsed deepgramResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Transcript{}, fmt.Errorf("deepgram: decode response: %w", err)
	}
	switch {
	case parsed.Channel != nil && len(parsed.Channel.Alternatives) > 0:
		final := parsed.IsFinal != nil && *parsed.IsFinal
		return Transcript{Text: parsed.Channel.Alternatives[0].Transcript, IsFinal: final}, nil
	case parsed.Results != nil && len(parsed.Results.Channels) > 0 && len(parsed.Results.Channels[0].Alternatives) > 0:
		final := parsed.IsFinal == nil || *parsed.IsFinal
		return Transcript{Text: parsed.Results.Channels[0].Alternatives[0].Transcript, IsFinal: final}, nil
	default:
		return Transcript{}, nil
	}
}
