// Package app wires stores, providers, the relay and the HTTP surface together.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ent0n29/voiceagents/internal/agent"
	"github.com/ent0n29/voiceagents/internal/config"
	"github.com/ent0n29/voiceagents/internal/convo"
	"github.com/ent0n29/voiceagents/internal/httpapi"
	"github.com/ent0n29/voiceagents/internal/observability"
	"github.com/ent0n29/voiceagents/internal/policy"
	"github.com/ent0n29/voiceagents/internal/relay"
	"github.com/ent0n29/voiceagents/internal/session"
)

type VoiceInfo struct {
	Provider string
	Detail   string
}

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions session.Store
	Agents   agent.Store
	Relay    *relay.Relay
	Metrics  *observability.Metrics
	Voice    VoiceInfo

	// Cleanup should be called on shutdown to release the stores.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*BuildResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetricsWithRegistry(cfg.MetricsNamespace, reg)

	sessions, agents, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closeStores := func() error {
		return errors.Join(agents.Close(), sessions.Close())
	}

	if cfg.AgentsFile != "" {
		catalog, err := agent.LoadCatalog(cfg.AgentsFile)
		if err != nil {
			_ = closeStores()
			return nil, err
		}
		n, err := agent.Import(ctx, agents, catalog)
		if err != nil {
			_ = closeStores()
			return nil, err
		}
		logger.Info("agents seeded", zap.String("file", cfg.AgentsFile), zap.Int("count", n))
	}

	setup, err := resolveVoiceProviders(cfg)
	if err != nil {
		_ = closeStores()
		return nil, err
	}

	if mem, ok := sessions.(*session.MemoryStore); ok {
		mem.SetEndedRetention(cfg.SessionRetention)
		mem.SetPruneHook(func(session.Session) {
			metrics.SessionEvents.WithLabelValues("pruned").Inc()
		})
	}

	r, err := relay.New(relay.Options{
		Sessions:        sessions,
		Agents:          agents,
		Contexts:        convo.NewMemoryStore(convo.DefaultSystemPrompt),
		Locks:           convo.NewLocker(),
		Transcriber:     setup.providers.Transcriber,
		Completer:       setup.providers.Completer,
		Synthesizer:     setup.providers.Synthesizer,
		Window:          convo.Policy{MaxTurns: cfg.ContextMaxTurns},
		ProviderTimeout: cfg.ProviderTimeout,
		Metrics:         metrics,
		Logger:          logger,
		Redactor:        policy.LogRedactor{MaxRunes: cfg.LogPreviewRunes, Disabled: !cfg.LogRedactPII},
	})
	if err != nil {
		_ = closeStores()
		return nil, err
	}

	api := httpapi.New(cfg, httpapi.Deps{
		Sessions:     sessions,
		Relay:        r,
		Voices:       setup.providers.Voices,
		Synthesizer:  setup.providers.Synthesizer,
		Metrics:      metrics,
		Logger:       logger,
		ProviderName: setup.providers.Name,
	})

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Agents:   agents,
		Relay:    r,
		Metrics:  metrics,
		Voice:    VoiceInfo{Provider: setup.providers.Name, Detail: setup.detail},
		Cleanup:  closeStores,
	}, nil
}

// OpenStores opens the session and agent stores on the configured backend.
func OpenStores(ctx context.Context, cfg config.Config) (session.Store, agent.Store, error) {
	sessions, err := session.NewStore(ctx, session.StoreOptions{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("session store init failed: %w", err)
	}
	agents, err := agent.NewStore(ctx, agent.StoreOptions{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	})
	if err != nil {
		_ = sessions.Close()
		return nil, nil, fmt.Errorf("agent store init failed: %w", err)
	}
	return sessions, agents, nil
}

// StartBackground runs store maintenance until ctx ends.
func (b *BuildResult) StartBackground(ctx context.Context) {
	if mem, ok := b.Sessions.(*session.MemoryStore); ok {
		mem.StartJanitor(ctx, time.Minute)
	}
}
