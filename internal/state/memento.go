// Package state persists small pieces of client state across sessions.
//
// A Memento stores JSON-encoded values by key. MemoryMemento keeps them for
// the lifetime of the process; SQLiteMemento keeps them in a database file.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned after a memento was closed.
var ErrClosed = errors.New("memento closed")

// Memento is a key/value store for client state.
type Memento interface {
	// Get decodes the value stored under key into out. It reports false when
	// the key is absent.
	Get(ctx context.Context, key string, out any) (bool, error)
	// Update stores value under key. A nil value deletes the key.
	Update(ctx context.Context, key string, value any) error
	Close() error
}

// MemoryMemento is an in-process Memento.
type MemoryMemento struct {
	mu     sync.Mutex
	values map[string][]byte
	closed bool
}

// NewMemory creates an empty in-memory memento.
func NewMemory() *MemoryMemento {
	return &MemoryMemento{values: make(map[string][]byte)}
}

// Get implements Memento.
func (m *MemoryMemento) Get(_ context.Context, key string, out any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, ErrClosed
	}
	data, ok := m.values[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Update implements Memento.
func (m *MemoryMemento) Update(_ context.Context, key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if value == nil {
		delete(m.values, key)
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	m.values[key] = data
	return nil
}

// Close implements Memento.
func (m *MemoryMemento) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
