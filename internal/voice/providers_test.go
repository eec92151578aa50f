package voice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ent0n29/voiceagents/internal/convo"
)

func TestDeepgramTranscribeStreamingShape(t *testing.T) {
	var gotAuth, gotQuery string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/listen" {
			t.Errorf("path = %q, want /v1/listen", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"is_final":true,"channel":{"alternatives":[{"transcript":"hello"}]}}`))
	}))
	defer srv.Close()

	p := NewDeepgramTranscriber(DeepgramConfig{APIKey: "dg", BaseURL: srv.URL, Model: "nova-2", SampleRate: 48000})
	got, err := p.Transcribe(context.Background(), []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != (Transcript{Text: "hello", IsFinal: true}) {
		t.Fatalf("Transcribe() = %+v", got)
	}
	if gotAuth != "Token dg" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if len(gotBody) != 3 {
		t.Fatalf("body len = %d, want 3", len(gotBody))
	}
	if gotQuery == "" {
		t.Fatalf("expected query parameters")
	}
}

func TestParseDeepgramShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want Transcript
	}{
		{"interim", `{"is_final":false,"channel":{"alternatives":[{"transcript":"hel"}]}}`, Transcript{Text: "hel"}},
		// A prerecorded result is the whole utterance, so a missing is_final reads as
		// final here; otherwise a file-style response could never start a turn.
		{"prerecorded", `{"results":{"channels":[{"alternatives":[{"transcript":"hi there"}]}]}}`, Transcript{Text: "hi there", IsFinal: true}},
		{"prerecorded explicit interim", `{"is_final":false,"results":{"channels":[{"alternatives":[{"transcript":"hi"}]}]}}`, Transcript{Text: "hi"}},
		{"missing path", `{"metadata":{}}`, Transcript{}},
		{"no alternatives", `{"channel":{"alternatives":[]}}`, Transcript{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseDeepgram([]byte(tc.body))
			if err != nil {
				t.Fatalf("parseDeepgram() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("parseDeepgram() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestDeepgramNon2xxIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewDeepgramTranscriber(DeepgramConfig{BaseURL: srv.URL})
	_, err := p.Transcribe(context.Background(), []byte{1})
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Transcribe() error = %v, want *ProviderError", err)
	}
	if pe.StatusCode != http.StatusTooManyRequests || !pe.Retryable() {
		t.Fatalf("ProviderError = %+v, retryable = %v", pe, pe.Retryable())
	}
	if ErrorCode(err) != "429" {
		t.Fatalf("ErrorCode() = %q, want 429", ErrorCode(err))
	}
}

func TestOpenAICompleteSendsFullContext(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hi!"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAICompleter(OpenAIConfig{APIKey: "sk", BaseURL: srv.URL, Model: "m1"})
	msgs := []convo.Message{{Role: convo.RoleSystem, Content: "sys"}, convo.User("hello")}
	reply, err := p.Complete(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply != "Hi!" {
		t.Fatalf("Complete() = %q, want %q", reply, "Hi!")
	}
	if got.Model != "m1" || len(got.Messages) != 2 || got.Messages[1].Content != "hello" {
		t.Fatalf("request = %+v", got)
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAICompleter(OpenAIConfig{BaseURL: srv.URL})
	if _, err := p.Complete(context.Background(), nil); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("Complete() error = %v, want ErrEmptyCompletion", err)
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	var got ttsRequest
	var path, accept, key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		accept = r.Header.Get("Accept")
		key = r.Header.Get("xi-api-key")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte("ID3audio"))
	}))
	defer srv.Close()

	p := NewElevenLabsProvider(ElevenLabsConfig{APIKey: "xi", BaseURL: srv.URL})
	audio, err := p.Synthesize(context.Background(), "hello", "v1", TTSSettings{Stability: 0.75, SimilarityBoost: 1.4})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "ID3audio" {
		t.Fatalf("audio = %q", audio)
	}
	if path != "/v1/text-to-speech/v1" || accept != "audio/mpeg" || key != "xi" {
		t.Fatalf("request path=%q accept=%q key=%q", path, accept, key)
	}
	if got.Text != "hello" || got.VoiceSettings.Stability != 0.75 || got.VoiceSettings.SimilarityBoost != 1 {
		t.Fatalf("payload = %+v", got)
	}
}

func TestReadProviderResponseRejectsOversizedBody(t *testing.T) {
	newRes := func(body string) *http.Response {
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}
	}
	if _, err := readProviderResponse("elevenlabs", newRes("ID3audio!"), 8); err == nil {
		t.Fatalf("readProviderResponse() error = nil, want overflow error")
	}
	body, err := readProviderResponse("elevenlabs", newRes("ID3audio"), 8)
	if err != nil {
		t.Fatalf("readProviderResponse() error = %v", err)
	}
	if string(body) != "ID3audio" {
		t.Fatalf("body = %q", body)
	}
}

func TestElevenLabsMissingVoiceSkipsRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	p := NewElevenLabsProvider(ElevenLabsConfig{BaseURL: srv.URL})
	if _, err := p.Synthesize(context.Background(), "hi", " ", TTSSettings{}); !errors.Is(err, ErrMissingVoiceID) {
		t.Fatalf("Synthesize() error = %v, want ErrMissingVoiceID", err)
	}
	if called {
		t.Fatalf("provider called without a voice id")
	}
}

func TestElevenLabsListVoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/voices" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"voices":[{"voice_id":"b","name":"Zed"},{"voice_id":"","name":"skip"},{"voice_id":"a","name":"Amy"}]}`))
	}))
	defer srv.Close()

	p := NewElevenLabsProvider(ElevenLabsConfig{BaseURL: srv.URL})
	voices, err := p.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices() error = %v", err)
	}
	if len(voices) != 2 || voices[0].Name != "Amy" || voices[1].VoiceID != "b" {
		t.Fatalf("ListVoices() = %+v", voices)
	}
}

func TestMockTranscriberSimulated(t *testing.T) {
	m := NewMockTranscriber()
	ctx := context.Background()
	for i := 1; i <= 8; i++ {
		got, err := m.Transcribe(ctx, []byte{byte(i)})
		if err != nil {
			t.Fatalf("Transcribe() error = %v", err)
		}
		if i < 8 && got.IsFinal {
			t.Fatalf("chunk %d final too early", i)
		}
		if i == 8 && (!got.IsFinal || got.Text == "") {
			t.Fatalf("chunk 8 = %+v, want final text", got)
		}
	}
}

func TestMockCompleterEchoes(t *testing.T) {
	m := &MockCompleter{}
	reply, err := m.Complete(context.Background(), []convo.Message{convo.User("ping")})
	if err != nil || reply != "I heard you: ping" {
		t.Fatalf("Complete() = %q, %v", reply, err)
	}
	if len(m.Calls()) != 1 {
		t.Fatalf("Calls() = %d, want 1", len(m.Calls()))
	}
}
