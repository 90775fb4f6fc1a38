package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/botmesh/core"
)

// InMemory is a volatile ObjectStore keeping both halves of the contract in
// process-local maps. It is safe for concurrent access and best suited for
// tests, demos and single-process deployments.
type InMemory struct {
	mu        sync.RWMutex
	immutable map[core.ObjectKey]any
	mutable   map[core.ObjectKey]any
}

// NewInMemory constructs an empty in-memory object store.
func NewInMemory() *InMemory {
	return &InMemory{
		immutable: make(map[core.ObjectKey]any),
		mutable:   make(map[core.ObjectKey]any),
	}
}

// RegisterImmutable stores a write-once value, failing with ErrKeyExists on
// duplicates so an object can never change its identity-to-content binding.
func (s *InMemory) RegisterImmutable(_ context.Context, key core.ObjectKey, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.immutable[key]; exists {
		return fmt.Errorf("key %v: %w", key, core.ErrKeyExists)
	}
	s.immutable[key] = value
	return nil
}

// GetImmutable returns the value registered under key, or nil.
func (s *InMemory) GetImmutable(_ context.Context, key core.ObjectKey) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.immutable[key], nil
}

// SetMutable stores overwritable bookkeeping state.
func (s *InMemory) SetMutable(_ context.Context, key core.ObjectKey, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutable[key] = value
	return nil
}

// GetMutable returns the mutable value under key, or nil.
func (s *InMemory) GetMutable(_ context.Context, key core.ObjectKey) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mutable[key], nil
}
