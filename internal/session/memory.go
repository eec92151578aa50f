package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Completed sessions are kept forever
// unless a retention is set, after which the janitor prunes them.
type MemoryStore struct {
	mu             sync.RWMutex
	sessions       map[string]*Session
	endedRetention time.Duration
	onPrune        func(Session)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

// SetEndedRetention controls how long completed sessions stay readable. Zero keeps them forever.
func (m *MemoryStore) SetEndedRetention(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.endedRetention = d
}

func (m *MemoryStore) SetPruneHook(hook func(Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPrune = hook
}

func (m *MemoryStore) Create(_ context.Context, s Session) (Session, error) {
	if strings.TrimSpace(s.ID) == "" {
		return Session{}, fmt.Errorf("create session: empty id")
	}
	if s.Status == "" {
		s.Status = StatusActive
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	stored := clone(&s)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return Session{}, fmt.Errorf("create session %s: duplicate id", s.ID)
	}
	m.sessions[s.ID] = &stored
	return clone(&stored), nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return clone(s), nil
}

func (m *MemoryStore) Update(_ context.Context, sessionID string, patch Patch) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	patch.apply(s)
	return clone(s), nil
}

func (m *MemoryStore) Complete(_ context.Context, sessionID string, at time.Time) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	if s.Status == StatusCompleted {
		return clone(s), ErrAlreadyCompleted
	}
	ended := at.UTC()
	s.Status = StatusCompleted
	s.EndedAt = &ended
	return clone(s), nil
}

func (m *MemoryStore) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

// StartJanitor prunes completed sessions past retention until ctx is done.
// It never changes a session's status.
func (m *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.pruneEnded(time.Now().UTC())
			}
		}
	}()
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) pruneEnded(now time.Time) {
	var pruned []Session

	m.mu.Lock()
	if m.endedRetention <= 0 {
		m.mu.Unlock()
		return
	}
	for id, s := range m.sessions {
		if s.Status != StatusCompleted || s.EndedAt == nil {
			continue
		}
		if now.Sub(*s.EndedAt) < m.endedRetention {
			continue
		}
		pruned = append(pruned, clone(s))
		delete(m.sessions, id)
	}
	hook := m.onPrune
	m.mu.Unlock()

	if hook != nil {
		for _, s := range pruned {
			hook(s)
		}
	}
}
