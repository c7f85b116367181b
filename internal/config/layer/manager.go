package layer

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	ErrLayerNotFound = errors.New("layer not found")
	ErrReadOnly      = errors.New("layer is read-only")
)

// Manager owns an ordered stack of layers. Merges are cached per folder
// and dropped whenever any layer changes.
type Manager struct {
	mu     sync.RWMutex
	layers []*Layer // ascending priority
	cache  map[string]map[string]any
}

func NewManager() *Manager {
	return &Manager{cache: make(map[string]map[string]any)}
}

// Add inserts l, replacing a layer of the same name. Layers of equal
// priority keep their insertion order.
func (m *Manager) Add(l *Layer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.layers = slices.DeleteFunc(m.layers, func(x *Layer) bool { return x.Name == l.Name })
	m.layers = append(m.layers, l)
	slices.SortStableFunc(m.layers, func(a, b *Layer) int { return a.Priority - b.Priority })
	clear(m.cache)
}

// Layer returns the named layer or nil.
func (m *Manager) Layer(name string) *Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.find(name)
}

// Layers returns the layers in ascending priority.
func (m *Manager) Layers() []*Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.layers)
}

// Merge merges the layers that apply everywhere.
func (m *Manager) Merge() map[string]any {
	return m.MergeScope("")
}

// MergeScope merges every layer that applies to folder. The caller owns
// the returned map.
func (m *Manager) MergeScope(folder string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged, ok := m.cache[folder]
	if !ok {
		merged = make(map[string]any)
		for _, l := range m.layers {
			if l.AppliesTo(folder) {
				merged = DeepMerge(merged, l.Data)
			}
		}
		m.cache[folder] = merged
	}
	return cloneMap(merged)
}

// Lookup returns the effective value of path in folder and the name of the
// layer that set it.
func (m *Manager) Lookup(folder, path string) (value any, layer string, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range slices.Backward(m.layers) {
		if !l.AppliesTo(folder) {
			continue
		}
		if v, ok := GetByPath(l.Data, path); ok {
			return cloneValue(v), l.Name, true
		}
	}
	return nil, "", false
}

// Value returns a copy of the value stored at path in the named layer.
func (m *Manager) Value(name, path string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l := m.find(name)
	if l == nil {
		return nil, false
	}
	v, ok := GetByPath(l.Data, path)
	return cloneValue(v), ok
}

// Set stores value at path in the named layer.
func (m *Manager) Set(name, path string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, err := m.writable(name)
	if err != nil {
		return err
	}
	SetByPath(l.Data, path, cloneValue(value))
	clear(m.cache)
	return nil
}

// Delete removes path from the named layer, pruning parents left empty.
func (m *Manager) Delete(name, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, err := m.writable(name)
	if err != nil {
		return err
	}
	if DeleteByPath(l.Data, path) {
		clear(m.cache)
	}
	return nil
}

// Replace swaps the data of the named layer, as after a file reload.
// Read-only layers may be replaced.
func (m *Manager) Replace(name string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.find(name)
	if l == nil {
		return fmt.Errorf("%w: %s", ErrLayerNotFound, name)
	}
	l.Data = cloneMap(data)
	if l.Data == nil {
		l.Data = make(map[string]any)
	}
	clear(m.cache)
	return nil
}

func (m *Manager) find(name string) *Layer {
	i := slices.IndexFunc(m.layers, func(l *Layer) bool { return l.Name == name })
	if i < 0 {
		return nil
	}
	return m.layers[i]
}

func (m *Manager) writable(name string) (*Layer, error) {
	l := m.find(name)
	switch {
	case l == nil:
		return nil, fmt.Errorf("%w: %s", ErrLayerNotFound, name)
	case l.ReadOnly:
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, name)
	}
	if l.Data == nil {
		l.Data = make(map[string]any)
	}
	return l, nil
}
