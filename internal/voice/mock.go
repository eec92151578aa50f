package voice

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ent0n29/voiceagents/internal/convo"
)

// TranscriptResult is one scripted MockTranscriber answer.
type TranscriptResult struct {
	Transcript Transcript
	Err        error
}

// MockTranscriber replays a script, one entry per chunk. With no script it
// emits an interim "..." for every chunk and a final phrase every eighth one.
type MockTranscriber struct {
	mu     sync.Mutex
	script []TranscriptResult
	chunks int
	calls  int
}

func NewMockTranscriber(script ...TranscriptResult) *MockTranscriber {
	return &MockTranscriber{script: script}
}

func (m *MockTranscriber) Transcribe(_ context.Context, audio []byte) (Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		return next.Transcript, next.Err
	}
	if len(audio) == 0 {
		return Transcript{}, nil
	}
	m.chunks++
	if m.chunks%8 == 0 {
		return Transcript{Text: "simulated voice input", IsFinal: true}, nil
	}
	return Transcript{Text: "...", IsFinal: false}, nil
}

func (m *MockTranscriber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockCompleter answers with Reply, or echoes the last user turn.
type MockCompleter struct {
	mu    sync.Mutex
	Reply string
	Err   error
	calls [][]convo.Message
}

func (m *MockCompleter) Complete(_ context.Context, msgs []convo.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := make([]convo.Message, len(msgs))
	copy(snapshot, msgs)
	m.calls = append(m.calls, snapshot)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == convo.RoleUser {
			return fmt.Sprintf("I heard you: %s", msgs[i].Content), nil
		}
	}
	return "", ErrEmptyCompletion
}

// Calls returns the message lists seen so far.
func (m *MockCompleter) Calls() [][]convo.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]convo.Message, len(m.calls))
	copy(out, m.calls)
	return out
}

// MockSynthesizer returns Audio, or the text bytes when Audio is nil.
type MockSynthesizer struct {
	mu    sync.Mutex
	Audio []byte
	Err   error
	calls int
}

func (m *MockSynthesizer) Synthesize(_ context.Context, text, voiceID string, _ TTSSettings) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if strings.TrimSpace(voiceID) == "" {
		return nil, ErrMissingVoiceID
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Audio != nil {
		return append([]byte(nil), m.Audio...), nil
	}
	return []byte(text), nil
}

func (m *MockSynthesizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockVoices struct{}

func (mockVoices) ListVoices(context.Context) ([]VoiceSummary, error) {
	return []VoiceSummary{{VoiceID: "mock", Name: "Mock voice", Category: "mock"}}, nil
}

// NewMockProviders wires the mock stages for local runs without credentials.
func NewMockProviders() Providers {
	return Providers{
		Transcriber: NewMockTranscriber(),
		Completer:   &MockCompleter{},
		Synthesizer: &MockSynthesizer{},
		Voices:      mockVoices{},
		Name:        "mock",
	}
}
