package httpapi

import (
	"fmt"
	"net/http"
	"strings"
)

type statusCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type statusResponse struct {
	VoiceProvider string        `json:"voice_provider"`
	StoreDriver   string        `json:"store_driver"`
	Checks        []statusCheck `json:"checks"`
}

// handleStatus reports which backends are wired and what is missing for live voice.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	provider := s.deps.ProviderName
	if provider == "" {
		provider = "unknown"
	}
	checks := []statusCheck{{ID: "voice_provider", Status: "ok", Label: "Voice backend", Detail: provider}}
	if provider == "mock" {
		checks = append(checks, statusCheck{
			ID:     "mock_voice",
			Status: "warn",
			Label:  "Voice backend is mock",
			Detail: "Transcripts, replies and audio are simulated.",
			Fix:    "Set DEEPGRAM_API_KEY, OPENAI_API_KEY and ELEVENLABS_API_KEY.",
		})
	} else {
		checks = append(checks,
			keyCheck("deepgram_key", "Deepgram API key", "DEEPGRAM_API_KEY", s.cfg.DeepgramAPIKey),
			keyCheck("openai_key", "OpenAI API key", "OPENAI_API_KEY", s.cfg.OpenAIAPIKey),
			keyCheck("elevenlabs_key", "ElevenLabs API key", "ELEVENLABS_API_KEY", s.cfg.ElevenLabsAPIKey),
		)
	}

	driver := s.storeDriver()
	store := statusCheck{ID: "session_store", Status: "ok", Label: "Session persistence", Detail: driver}
	if driver == "memory" {
		store.Status = "warn"
		store.Detail = "in-memory only"
		store.Fix = "Set STORE_DRIVER=sqlite or DATABASE_URL to persist sessions across restarts."
	}
	checks = append(checks, store)

	window := statusCheck{ID: "context_window", Status: "ok", Label: "Conversation context", Detail: "unbounded"}
	if s.cfg.ContextMaxTurns > 0 {
		window.Detail = fmt.Sprintf("last %d turns", s.cfg.ContextMaxTurns)
	} else {
		window.Status = "warn"
		window.Fix = "Set CONTEXT_MAX_TURNS to cap completion cost on long sessions."
	}
	checks = append(checks, window)

	respondJSON(w, http.StatusOK, statusResponse{
		VoiceProvider: provider,
		StoreDriver:   driver,
		Checks:        checks,
	})
}

func keyCheck(id, label, env, value string) statusCheck {
	if strings.TrimSpace(value) == "" {
		return statusCheck{ID: id, Status: "error", Label: label, Detail: env + " is not set", Fix: "Set " + env + " or run with VOICE_PROVIDER=mock."}
	}
	return statusCheck{ID: id, Status: "ok", Label: label, Detail: "present"}
}
