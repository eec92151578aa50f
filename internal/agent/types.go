// Package agent holds the agent configuration records the relay reads at turn time.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("agent not found")

// VoiceSettings are the fractional synthesis controls, both in [0,1].
type VoiceSettings struct {
	Stability       float64 `json:"stability" toml:"stability"`
	SimilarityBoost float64 `json:"similarityBoost" toml:"similarity_boost"`
}

// DefaultVoiceSettings apply when an agent specifies none.
var DefaultVoiceSettings = VoiceSettings{Stability: 0.75, SimilarityBoost: 0.75}

type Agent struct {
	ID            string         `json:"id" toml:"id"`
	UserID        string         `json:"userId" toml:"user_id"`
	Name          string         `json:"name" toml:"name"`
	Description   string         `json:"description" toml:"description"`
	SystemPrompt  *string        `json:"systemPrompt" toml:"system_prompt"`
	VoiceID       string         `json:"voiceId" toml:"voice_id"`
	VoiceSettings *VoiceSettings `json:"voiceSettings" toml:"voice_settings"`
	IsActive      bool           `json:"isActive" toml:"is_active"`
}

// Store is the read side the relay depends on, plus Put for seeding.
type Store interface {
	Get(ctx context.Context, agentID string) (Agent, error)
	Put(ctx context.Context, a Agent) error
	List(ctx context.Context) ([]Agent, error)
	Close() error
}

func (a Agent) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("agent id is required")
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("agent %s: name is required", a.ID)
	}
	if vs := a.VoiceSettings; vs != nil {
		if vs.Stability < 0 || vs.Stability > 1 {
			return fmt.Errorf("agent %s: stability %.2f out of range [0,1]", a.ID, vs.Stability)
		}
		if vs.SimilarityBoost < 0 || vs.SimilarityBoost > 1 {
			return fmt.Errorf("agent %s: similarity boost %.2f out of range [0,1]", a.ID, vs.SimilarityBoost)
		}
	}
	return nil
}

func (a Agent) EffectiveVoiceSettings() VoiceSettings {
	if a.VoiceSettings == nil {
		return DefaultVoiceSettings
	}
	return *a.VoiceSettings
}

func clone(a Agent) Agent {
	if a.SystemPrompt != nil {
		p := *a.SystemPrompt
		a.SystemPrompt = &p
	}
	if a.VoiceSettings != nil {
		vs := *a.VoiceSettings
		a.VoiceSettings = &vs
	}
	return a
}
