package session

import (
	"context"
	"sync"
)

// MemoryStore keeps session history in process memory. This is the default
// driver; history lives as long as the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Message)}
}

func (s *MemoryStore) Append(_ context.Context, id string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = append(s.sessions[id], msg)
	return nil
}

func (s *MemoryStore) History(_ context.Context, id string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.sessions[id]
	out := make([]Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
