package convo

import (
	"context"
	"strings"
	"sync"
)

// Store holds conversation contexts keyed by session id.
type Store interface {
	Get(ctx context.Context, sessionID string) ([]Message, bool)
	// Append seeds the system instruction on first use, then appends msgs in order.
	// The returned slice is a copy of the full context after the append.
	Append(ctx context.Context, sessionID string, msgs ...Message) ([]Message, error)
	Evict(ctx context.Context, sessionID string)
	Len() int
}

type MemoryStore struct {
	mu           sync.Mutex
	systemPrompt string
	contexts     map[string][]Message
}

func NewMemoryStore(systemPrompt string) *MemoryStore {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &MemoryStore{
		systemPrompt: systemPrompt,
		contexts:     make(map[string][]Message),
	}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) ([]Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, ok := s.contexts[sessionID]
	if !ok {
		return nil, false
	}
	return copyMessages(msgs), true
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, msgs ...Message) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.contexts[sessionID]
	if !ok {
		existing = []Message{{Role: RoleSystem, Content: s.systemPrompt}}
	}
	existing = append(existing, msgs...)
	s.contexts[sessionID] = existing
	return copyMessages(existing), nil
}

func (s *MemoryStore) Evict(_ context.Context, sessionID string) {
	s.mu.Lock()
	delete(s.contexts, sessionID)
	s.mu.Unlock()
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contexts)
}

func copyMessages(in []Message) []Message {
	out := make([]Message, len(in))
	copy(out, in)
	return out
}
