package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/voiceagents/internal/config"
	"github.com/ent0n29/voiceagents/internal/logging"
	"github.com/ent0n29/voiceagents/internal/observability"
	"github.com/ent0n29/voiceagents/internal/protocol"
	"github.com/ent0n29/voiceagents/internal/relay"
	"github.com/ent0n29/voiceagents/internal/session"
	"github.com/ent0n29/voiceagents/internal/voice"
)

// Relay runs one websocket connection's audio pipeline.
type Relay interface {
	Run(ctx context.Context, sessionID string, inbound <-chan []byte, outbound chan<- any) error
}

type Deps struct {
	Sessions     session.Store
	Relay        Relay
	Voices       voice.VoiceLister
	Synthesizer  voice.Synthesizer
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	ProviderName string
}

type Server struct {
	cfg      config.Config
	deps     Deps
	logger   *zap.Logger
	upgrader websocket.Upgrader

	// baseCtx is cancelled by Shutdown so hijacked websocket handlers wind down.
	baseCtx context.Context
	stop    context.CancelFunc
	mu      sync.Mutex
	closing bool
	conns   sync.WaitGroup
}

const (
	wsReadLimit    = 2 << 20
	wsReadTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

func New(cfg config.Config, deps Deps) *Server {
	baseCtx, stop := context.WithCancel(context.Background())
	return &Server{
		baseCtx: baseCtx,
		stop:    stop,
		cfg:     cfg,
		deps:    deps,
		logger:  logging.Component(deps.Logger, "httpapi"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browsers may only connect from the serving origin unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Post("/api/voice-chat", s.handleCreateSession)
	r.Get("/api/voice-chat/{sessionId}", s.handleGetSession)
	r.Get("/api/voices", s.handleListVoices)
	r.Post("/api/voices/preview", s.handlePreviewVoice)
	r.Get("/api/perf/latency", s.handlePerfLatency)
	r.Get("/api/status", s.handleStatus)

	r.Get("/ws/transcription/{sessionId}", s.handleTranscriptionWS)
	// No id segment still upgrades so the client receives a close reason.
	r.Get("/ws/transcription", s.handleTranscriptionWS)
	r.Get("/ws/transcription/", s.handleTranscriptionWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ready",
		"voice_provider": s.deps.ProviderName,
		"store_driver":   s.storeDriver(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.deps.Metrics == nil {
		http.NotFound(w, r)
		return
	}
	s.deps.Metrics.Handler().ServeHTTP(w, r)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	req, err := protocol.ParseCreateSessionRequest(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	sess := session.New(string(req.UserID), string(req.AgentID), map[string]string{
		"userAgent": r.UserAgent(),
		"voiceId":   req.VoiceID,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	})
	created, err := s.deps.Sessions.Create(r.Context(), sess)
	if err != nil {
		s.logger.Error("create session", zap.String(logging.FieldAgentID, sess.AgentID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to create session", "")
		return
	}
	if m := s.deps.Metrics; m != nil {
		m.SessionEvents.WithLabelValues("created").Inc()
	}
	s.logger.Info("session created",
		zap.String(logging.FieldSessionID, created.ID),
		zap.String(logging.FieldAgentID, created.AgentID),
	)
	respondJSON(w, http.StatusCreated, protocol.CreateSessionResponse{SessionID: created.ID})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "sessionId"))
	sess, err := s.deps.Sessions.Get(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Session not found", "")
		return
	}
	if err != nil {
		s.logger.Error("get session", zap.String(logging.FieldSessionID, id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to load session", "")
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleTranscriptionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionId"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if sessionID == "" {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session id required")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
		s.logger.Warn("websocket rejected: missing session id", zap.String("path", r.URL.Path))
		return
	}
	if s.deps.Relay == nil {
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "relay unavailable")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
		return
	}

	if !s.trackConn() {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
		return
	}
	defer s.conns.Done()

	log := s.logger.With(zap.String(logging.FieldSessionID, sessionID))
	log.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// http.Server.Shutdown does not see hijacked connections; closing the socket
	// unblocks the read loop so the relay can complete the session.
	stopOnShutdown := context.AfterFunc(s.baseCtx, func() {
		cancel()
		closeWith(conn, websocket.CloseGoingAway, "server shutting down")
	})
	defer stopOnShutdown()

	inbound := make(chan []byte, 256)
	outbound := make(chan any, 256)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		err := s.deps.Relay.Run(ctx, sessionID, inbound, outbound)
		switch {
		case errors.Is(err, relay.ErrSessionBusy):
			log.Warn("websocket rejected: session already connected")
			cancel()
			closeWith(conn, websocket.ClosePolicyViolation, "session already connected")
		case err != nil && !errors.Is(err, context.Canceled):
			log.Warn("relay stopped", zap.Error(err))
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, cancel, conn, outbound, log)
	}()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Debug("websocket read ended", zap.Error(err))
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if msgType != websocket.BinaryMessage {
			s.countMessage("inbound", "ignored")
			continue
		}
		s.countMessage("inbound", "audio_chunk")
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- data:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
	log.Info("websocket disconnected")
}

// Shutdown closes live websocket connections and waits until their relays have
// completed the sessions, or until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.stop()

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) trackConn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns.Add(1)
	return true
}

// closeWith sends a close frame and drops the socket. Both calls are safe to run
// alongside the writer goroutine.
func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteTimeout))
	_ = conn.Close()
}

// writeLoop is the only goroutine that writes data frames to conn.
func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, outbound <-chan any, log *zap.Logger) {
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				cancel()
				return
			}
		case msg := <-outbound:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				log.Warn("websocket write failed", zap.Error(err))
				cancel()
				return
			}
			if t, ok := messageTypeOf(msg); ok {
				s.countMessage("outbound", string(t))
			}
		}
	}
}

func (s *Server) countMessage(direction, kind string) {
	if m := s.deps.Metrics; m != nil {
		m.WSMessages.WithLabelValues(direction, kind).Inc()
	}
}

func (s *Server) storeDriver() string {
	if s.cfg.StoreDriver != "" {
		return s.cfg.StoreDriver
	}
	if s.cfg.DatabaseURL != "" {
		return "postgres"
	}
	return "memory"
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message, details string) {
	respondJSON(w, status, protocol.ErrorResponse{Error: message, Details: details})
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.Transcription:
		return m.Type, true
	case protocol.Response:
		return m.Type, true
	case protocol.Audio:
		return m.Type, true
	case protocol.Error:
		return m.Type, true
	default:
		return "", false
	}
}
