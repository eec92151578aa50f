package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ent0n29/voiceagents/internal/agent"
	"github.com/ent0n29/voiceagents/internal/voice"
)

type listVoicesResponse struct {
	Voices []voice.VoiceSummary `json:"voices"`
}

func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	if s.deps.Voices == nil {
		respondJSON(w, http.StatusOK, listVoicesResponse{Voices: []voice.VoiceSummary{}})
		return
	}
	voices, err := s.deps.Voices.ListVoices(r.Context())
	if err != nil {
		s.logger.Warn("list voices", zap.Error(err))
		respondError(w, http.StatusBadGateway, "Failed to list voices", "")
		return
	}
	if voices == nil {
		voices = []voice.VoiceSummary{}
	}
	respondJSON(w, http.StatusOK, listVoicesResponse{Voices: voices})
}

type previewVoiceRequest struct {
	VoiceID       string               `json:"voiceId"`
	Text          string               `json:"text"`
	VoiceSettings *agent.VoiceSettings `json:"voiceSettings,omitempty"`
}

const defaultPreviewText = "Hi there! This is how I will sound during our conversation."

// handlePreviewVoice synthesizes a short sample, letting agent owners hear a voice
// and settings before saving them.
func (s *Server) handlePreviewVoice(w http.ResponseWriter, r *http.Request) {
	if s.deps.Synthesizer == nil {
		respondError(w, http.StatusNotImplemented, "Synthesis unavailable", "")
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	var req previewVoiceRequest
	if err := decodeOptionalJSON(raw, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = defaultPreviewText
	}
	settings := agent.Agent{VoiceSettings: req.VoiceSettings}.EffectiveVoiceSettings()

	audio, err := s.deps.Synthesizer.Synthesize(r.Context(), text, strings.TrimSpace(req.VoiceID), voice.TTSSettings{
		Stability:       settings.Stability,
		SimilarityBoost: settings.SimilarityBoost,
	})
	if errors.Is(err, voice.ErrMissingVoiceID) {
		respondError(w, http.StatusBadRequest, "Invalid request", "voiceId is required")
		return
	}
	if err != nil {
		s.logger.Warn("preview voice", zap.String("voice_id", req.VoiceID), zap.Error(err))
		respondError(w, http.StatusBadGateway, "Failed to synthesize speech", "")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// decodeOptionalJSON treats an empty body as an empty object.
func decodeOptionalJSON(raw []byte, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
