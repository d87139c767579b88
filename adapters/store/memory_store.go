package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/ports"
)

// MemoryStore is an in-memory implementation of the Store interface
type MemoryStore struct {
	invalidatedTokens map[string]time.Time
	mu                sync.Mutex
	now               func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.Store {
	return &MemoryStore{
		invalidatedTokens: make(map[string]time.Time),
		now:               time.Now,
	}
}

// InvalidateToken marks a token as invalidated until expiry has passed
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	until := now.Add(expiry)
	// Never shorten an existing invalidation
	if current, ok := s.invalidatedTokens[tokenID]; ok && current.After(until) {
		return nil
	}
	s.invalidatedTokens[tokenID] = until
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}
	if !s.now().Before(until) {
		delete(s.invalidatedTokens, tokenID)
		return false, nil
	}
	return true, nil
}

// sweep drops expired entries; callers hold mu
func (s *MemoryStore) sweep(now time.Time) {
	for id, until := range s.invalidatedTokens {
		if !now.Before(until) {
			delete(s.invalidatedTokens, id)
		}
	}
}

// MemoryLeadStore keeps leads in a map
type MemoryLeadStore struct {
	leads map[string]core.Lead
	mu    sync.RWMutex
}

// NewMemoryLeadStore creates an empty in-memory lead store
func NewMemoryLeadStore() *MemoryLeadStore {
	return &MemoryLeadStore{leads: make(map[string]core.Lead)}
}

// Insert stores a copy of lead
func (s *MemoryLeadStore) Insert(ctx context.Context, lead *core.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leads[lead.ID] = *lead
	return nil
}

// List returns every lead, newest first
func (s *MemoryLeadStore) List(ctx context.Context) ([]*core.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		l := lead
		out = append(out, &l)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Get returns one lead
func (s *MemoryLeadStore) Get(ctx context.Context, id string) (*core.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[id]
	if !ok {
		return nil, core.ErrLeadNotFound
	}
	return &lead, nil
}

// MarkRead sets the read flag of a lead
func (s *MemoryLeadStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lead, ok := s.leads[id]
	if !ok {
		return core.ErrLeadNotFound
	}
	lead.Read = true
	s.leads[id] = lead
	return nil
}

// Delete removes a lead
func (s *MemoryLeadStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[id]; !ok {
		return core.ErrLeadNotFound
	}
	delete(s.leads, id)
	return nil
}
