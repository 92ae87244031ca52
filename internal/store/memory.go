// internal/store/memory.go
//
// Key/value storage backends for durable client state.
// This file defines the KV interface and the in-memory implementation,
// used in tests and when durability is not required.
//
// Characteristics:
//   - Values are opaque strings keyed by name (the local-storage model).
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.
//   - Get reports ErrNotFound for missing keys.

package store

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when a key has no value.
var ErrNotFound = errors.New("not found")

// KV defines the persistence interface for client-side state.
// Implementations may be backed by memory (this file), files, Redis, etc.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores or replaces the value under key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// memory is an in-memory map-based KV implementation.
type memory struct {
	mu   sync.RWMutex      // guards vals
	vals map[string]string // keyed by storage key
}

// NewMemory constructs a new in-memory KV.
func NewMemory() KV {
	return &memory{vals: make(map[string]string)}
}

func (m *memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.vals[key]; ok {
		return v, nil
	}
	return "", ErrNotFound
}

func (m *memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = value
	return nil
}

func (m *memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, key)
	return nil
}
