// Package relay sequences one voice connection: audio chunks in, transcripts,
// replies and synthesized audio out.
package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/voiceagents/internal/agent"
	"github.com/ent0n29/voiceagents/internal/convo"
	"github.com/ent0n29/voiceagents/internal/logging"
	"github.com/ent0n29/voiceagents/internal/observability"
	"github.com/ent0n29/voiceagents/internal/policy"
	"github.com/ent0n29/voiceagents/internal/protocol"
	"github.com/ent0n29/voiceagents/internal/session"
	"github.com/ent0n29/voiceagents/internal/voice"
)

const defaultDisconnectTimeout = 10 * time.Second

// ErrSessionBusy is returned by Run when another connection already owns the session.
var ErrSessionBusy = errors.New("relay: session already has a live connection")

type Options struct {
	Sessions session.Store
	Agents   agent.Store
	Contexts convo.Store
	Locks    *convo.Locker

	Transcriber voice.Transcriber
	Completer   voice.Completer
	Synthesizer voice.Synthesizer

	// Window bounds the context sent to the completer; stored context is untouched.
	Window convo.Policy
	// ProviderTimeout bounds each upstream call when positive.
	ProviderTimeout   time.Duration
	DisconnectTimeout time.Duration

	Metrics  *observability.Metrics
	Logger   *zap.Logger
	Redactor policy.LogRedactor
	Now      func() time.Time
}

type Relay struct {
	opts   Options
	logger *zap.Logger

	mu     sync.Mutex
	states map[string]TurnState
	live   map[string]struct{}
}

func New(opts Options) (*Relay, error) {
	switch {
	case opts.Sessions == nil:
		return nil, errors.New("relay: session store is required")
	case opts.Agents == nil:
		return nil, errors.New("relay: agent store is required")
	case opts.Transcriber == nil || opts.Completer == nil || opts.Synthesizer == nil:
		return nil, errors.New("relay: transcriber, completer and synthesizer are required")
	}
	if opts.Contexts == nil {
		opts.Contexts = convo.NewMemoryStore(convo.DefaultSystemPrompt)
	}
	if opts.Locks == nil {
		opts.Locks = convo.NewLocker()
	}
	if opts.DisconnectTimeout <= 0 {
		opts.DisconnectTimeout = defaultDisconnectTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Relay{
		opts:   opts,
		logger: logging.Component(opts.Logger, "relay"),
		states: make(map[string]TurnState),
		live:   make(map[string]struct{}),
	}, nil
}

// Run owns one connection. Chunks from inbound are handled in arrival order and
// the session is completed exactly once when inbound closes or ctx ends. A session
// has at most one live connection; a second Run returns ErrSessionBusy untouched.
func (r *Relay) Run(ctx context.Context, sessionID string, inbound <-chan []byte, outbound chan<- any) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("relay: session id is required")
	}
	if !r.acquire(sessionID) {
		return ErrSessionBusy
	}
	defer r.release(sessionID)
	r.setState(sessionID, StateIdle)
	if m := r.opts.Metrics; m != nil {
		m.ActiveConnections.Inc()
		m.SessionEvents.WithLabelValues("connected").Inc()
		defer m.ActiveConnections.Dec()
	}
	defer r.Disconnect(sessionID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-inbound:
			if !ok {
				return nil
			}
			r.HandleChunk(ctx, sessionID, chunk, outbound)
		}
	}
}

// HandleChunk runs the pipeline for a single audio chunk. Failures are reported
// to the client as one error message and never end the connection.
func (r *Relay) HandleChunk(ctx context.Context, sessionID string, chunk []byte, outbound chan<- any) {
	unlock := r.opts.Locks.Lock(sessionID)
	defer unlock()

	log := r.logger.With(zap.String(logging.FieldSessionID, sessionID))
	started := time.Now()

	transcript, err := r.transcribe(ctx, chunk)
	if err != nil {
		r.fail(ctx, log, outbound, observability.StageTranscription, msgTranscriptionFailed, err)
		return
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return
	}
	r.emit(ctx, outbound, protocol.NewTranscription(transcript.Text, transcript.IsFinal))
	if !transcript.IsFinal {
		return
	}

	log.Info("final transcript", zap.String("text", r.opts.Redactor.Preview(transcript.Text)))
	r.runTurn(ctx, log, sessionID, transcript.Text, outbound)
	r.setState(sessionID, StateIdle)
	r.observe(observability.StageTurnTotal, time.Since(started))
}

func (r *Relay) runTurn(ctx context.Context, log *zap.Logger, sessionID, userText string, outbound chan<- any) {
	sess, err := r.opts.Sessions.Get(ctx, sessionID)
	if err != nil {
		msg := msgSessionLookup
		if errors.Is(err, session.ErrNotFound) {
			msg = msgSessionNotFound
		}
		r.fail(ctx, log, outbound, "session_lookup", msg, err)
		return
	}
	log = log.With(zap.String(logging.FieldAgentID, sess.AgentID))

	ag, err := r.opts.Agents.Get(ctx, sess.AgentID)
	if err != nil {
		r.fail(ctx, log, outbound, "agent_lookup", msgAgentNotFound, err)
		return
	}

	r.setState(sessionID, StateAwaitingCompletion)
	history, err := r.opts.Contexts.Append(ctx, sessionID, convo.User(userText))
	if err != nil {
		r.fail(ctx, log, outbound, "context", msgCompletionFailed, err)
		return
	}
	reply, err := r.complete(ctx, r.opts.Window.Window(history))
	if err != nil {
		r.fail(ctx, log, outbound, observability.StageCompletion, msgCompletionFailed, err)
		return
	}
	if _, err := r.opts.Contexts.Append(ctx, sessionID, convo.Assistant(reply)); err != nil {
		r.fail(ctx, log, outbound, "context", msgCompletionFailed, err)
		return
	}
	r.emit(ctx, outbound, protocol.NewResponse(reply))

	r.setState(sessionID, StateAwaitingSynthesis)
	if strings.TrimSpace(ag.VoiceID) == "" {
		r.fail(ctx, log, outbound, observability.StageSynthesis, msgNoVoice, voice.ErrMissingVoiceID)
		return
	}
	vs := ag.EffectiveVoiceSettings()
	audio, err := r.synthesize(ctx, reply, ag.VoiceID, voice.TTSSettings{Stability: vs.Stability, SimilarityBoost: vs.SimilarityBoost})
	if err != nil {
		r.fail(ctx, log, outbound, observability.StageSynthesis, msgSynthesisFailed, err)
		return
	}
	r.emit(ctx, outbound, protocol.NewAudio(base64.StdEncoding.EncodeToString(audio)))

	if _, err := r.opts.Sessions.Update(ctx, sessionID, session.Patch{Transcription: &userText, AgentResponse: &reply}); err != nil {
		r.fail(ctx, log, outbound, "persist", msgPersistFailed, err)
		return
	}
	log.Info("turn complete",
		zap.String("reply", r.opts.Redactor.Preview(reply)),
		zap.Int("audio_bytes", len(audio)),
		zap.Int("context_len", len(history)+1),
	)
	r.outcome("completed")
}

// Disconnect completes the session and drops its context. The caller's context is
// usually already cancelled, so it runs on its own deadline and only logs failures.
func (r *Relay) Disconnect(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.DisconnectTimeout)
	defer cancel()
	log := r.logger.With(zap.String(logging.FieldSessionID, sessionID))

	_, err := r.opts.Sessions.Complete(ctx, sessionID, r.opts.Now().UTC())
	switch {
	case err == nil:
		if m := r.opts.Metrics; m != nil {
			m.SessionEvents.WithLabelValues("completed").Inc()
		}
		log.Info("session completed")
	case errors.Is(err, session.ErrAlreadyCompleted):
		log.Debug("session already completed")
	default:
		log.Warn("complete session on disconnect", zap.Error(err))
	}
	r.opts.Contexts.Evict(ctx, sessionID)

	r.mu.Lock()
	delete(r.states, sessionID)
	r.mu.Unlock()
	log.Debug("turn state", zap.String("state", string(StateClosed)))
}

// State reports the pipeline position of a connected session, or StateClosed.
func (r *Relay) State(sessionID string) TurnState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[sessionID]; ok {
		return st
	}
	return StateClosed
}

func (r *Relay) acquire(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.live[sessionID]; busy {
		return false
	}
	r.live[sessionID] = struct{}{}
	return true
}

func (r *Relay) release(sessionID string) {
	r.mu.Lock()
	delete(r.live, sessionID)
	r.mu.Unlock()
}

func (r *Relay) setState(sessionID string, st TurnState) {
	r.mu.Lock()
	r.states[sessionID] = st
	r.mu.Unlock()
}

func (r *Relay) transcribe(ctx context.Context, chunk []byte) (voice.Transcript, error) {
	ctx, cancel := r.providerContext(ctx)
	defer cancel()
	start := time.Now()
	t, err := r.opts.Transcriber.Transcribe(ctx, chunk)
	if err == nil {
		r.observe(observability.StageTranscription, time.Since(start))
	}
	return t, err
}

func (r *Relay) complete(ctx context.Context, msgs []convo.Message) (string, error) {
	ctx, cancel := r.providerContext(ctx)
	defer cancel()
	start := time.Now()
	reply, err := r.opts.Completer.Complete(ctx, msgs)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = voice.ErrEmptyCompletion
	}
	if err == nil {
		r.observe(observability.StageCompletion, time.Since(start))
	}
	return reply, err
}

func (r *Relay) synthesize(ctx context.Context, text, voiceID string, settings voice.TTSSettings) ([]byte, error) {
	ctx, cancel := r.providerContext(ctx)
	defer cancel()
	start := time.Now()
	audio, err := r.opts.Synthesizer.Synthesize(ctx, text, voiceID, settings)
	if err == nil {
		r.observe(observability.StageSynthesis, time.Since(start))
	}
	return audio, err
}

func (r *Relay) providerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.opts.ProviderTimeout > 0 {
		return context.WithTimeout(ctx, r.opts.ProviderTimeout)
	}
	return ctx, func() {}
}

func (r *Relay) emit(ctx context.Context, outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	case <-ctx.Done():
	}
}

func (r *Relay) fail(ctx context.Context, log *zap.Logger, outbound chan<- any, stage, clientMsg string, err error) {
	fields := []zap.Field{zap.String(logging.FieldStage, stage), zap.Error(err)}
	var pe *voice.ProviderError
	if errors.As(err, &pe) {
		fields = append(fields, zap.Bool("retryable", pe.Retryable()))
	}
	log.Warn("turn abandoned", fields...)
	if m := r.opts.Metrics; m != nil && isProviderStage(stage) && !errors.Is(err, voice.ErrMissingVoiceID) {
		provider := stage
		if pe != nil {
			provider = pe.Provider
		}
		m.ProviderErrors.WithLabelValues(provider, voice.ErrorCode(err)).Inc()
	}
	r.outcome("abandoned_" + stage)
	r.emit(ctx, outbound, protocol.NewError(clientMsg))
}

func isProviderStage(stage string) bool {
	switch stage {
	case observability.StageTranscription, observability.StageCompletion, observability.StageSynthesis:
		return true
	default:
		return false
	}
}

func (r *Relay) observe(stage string, d time.Duration) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveStage(stage, d)
	}
}

func (r *Relay) outcome(name string) {
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveOutcome(name)
	}
}
