package agent

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps agents in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

func NewMemoryStore(seed ...Agent) *MemoryStore {
	s := &MemoryStore{agents: make(map[string]Agent, len(seed))}
	for _, a := range seed {
		s.agents[a.ID] = clone(a)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, agentID string) (Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[agentID]
	if !ok {
		return Agent{}, ErrNotFound
	}
	return clone(a), nil
}

func (s *MemoryStore) Put(_ context.Context, a Agent) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[a.ID] = clone(a)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, clone(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
