package session

import (
	"context"
	"sync"
)

// Store loads and saves conversation contexts. The backing persistence is
// swappable; the core only depends on this interface.
type Store interface {
	// Load returns the context for a conversation, creating an empty one on
	// first use.
	Load(ctx context.Context, conversationID string) (*Context, error)

	// Save persists the context.
	Save(ctx context.Context, c *Context) error
}

// MemoryStore keeps contexts in process memory. Suitable for tests and
// single-process deployments without durability needs.
type MemoryStore struct {
	mu       sync.RWMutex
	contexts map[string]*Context
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contexts: make(map[string]*Context)}
}

func (s *MemoryStore) Load(ctx context.Context, conversationID string) (*Context, error) {
	s.mu.RLock()
	c, ok := s.contexts[conversationID]
	s.mu.RUnlock()
	if !ok {
		return NewContext(conversationID), nil
	}
	return c.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, c *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[c.ConversationID] = c.Clone()
	return nil
}
