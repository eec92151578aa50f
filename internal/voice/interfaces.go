// Package voice wraps the three upstream providers of a voice turn:
// transcription, chat completion and speech synthesis.
package voice

import (
	"context"

	"github.com/ent0n29/voiceagents/internal/convo"
)

// Transcript is the first channel's first alternative of a transcription result.
// An empty Text means the chunk carried no speech.
type Transcript struct {
	Text    string
	IsFinal bool
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (Transcript, error)
}

type Completer interface {
	Complete(ctx context.Context, msgs []convo.Message) (string, error)
}

type TTSSettings struct {
	Stability       float64
	SimilarityBoost float64
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string, settings TTSSettings) ([]byte, error)
}

// Providers bundles one implementation of each stage.
type Providers struct {
	Transcriber Transcriber
	Completer   Completer
	Synthesizer Synthesizer
	Voices      VoiceLister
	Name        string
}
