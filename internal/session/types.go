package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrAlreadyCompleted = errors.New("session already completed")
)

// Session is the durable record of one voice conversation.
type Session struct {
	ID            string            `json:"sessionId"`
	UserID        string            `json:"userId"`
	AgentID       string            `json:"agentId"`
	Status        Status            `json:"status"`
	StartedAt     time.Time         `json:"startedAt"`
	EndedAt       *time.Time        `json:"endedAt"`
	Transcription string            `json:"transcription"`
	AgentResponse string            `json:"agentResponse"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Patch carries the fields a finalized turn overwrites. Nil fields are left untouched.
type Patch struct {
	Transcription *string
	AgentResponse *string
}

// Store persists sessions. Implementations must return ErrNotFound for unknown ids.
type Store interface {
	Create(ctx context.Context, s Session) (Session, error)
	Get(ctx context.Context, sessionID string) (Session, error)
	Update(ctx context.Context, sessionID string, patch Patch) (Session, error)
	Complete(ctx context.Context, sessionID string, at time.Time) (Session, error)
	Close() error
}

// New builds an active session with a fresh id. Metadata is copied and never mutated afterwards.
func New(userID, agentID string, metadata map[string]string) Session {
	return Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		AgentID:   agentID,
		Status:    StatusActive,
		StartedAt: time.Now().UTC(),
		Metadata:  copyMetadata(metadata),
	}
}

func (p Patch) apply(s *Session) {
	if p.Transcription != nil {
		s.Transcription = *p.Transcription
	}
	if p.AgentResponse != nil {
		s.AgentResponse = *p.AgentResponse
	}
}

func clone(s *Session) Session {
	c := *s
	c.Metadata = copyMetadata(s.Metadata)
	if s.EndedAt != nil {
		ended := *s.EndedAt
		c.EndedAt = &ended
	}
	return c
}

func copyMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
