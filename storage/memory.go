package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemSink keeps modules in memory. It is used by tests and by callers that
// only want to inspect the generated bytes.
type MemSink struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemSink returns an empty in-memory sink.
func NewMemSink() *MemSink {
	return &MemSink{objects: make(map[string][]byte)}
}

// Put stores a copy of data at path.
func (m *MemSink) Put(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[path] = append([]byte(nil), data...)
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the object at path.
func (m *MemSink) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.objects[path]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return append([]byte(nil), data...), nil
}

// Paths returns every stored path in sorted order.
func (m *MemSink) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.objects))
	for p := range m.objects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
