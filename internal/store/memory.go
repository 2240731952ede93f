package store

import (
	"context"
	"sync"
)

type memoryDriver struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

// NewMemoryDriver returns a process-local driver. Mutations are serialized by
// a single lock, so Mutate never conflicts.
func NewMemoryDriver() Driver {
	return &memoryDriver{collections: make(map[string]map[string][]byte)}
}

// NewMemory returns a Store backed by NewMemoryDriver.
func NewMemory(opts ...Option) Store {
	return New(NewMemoryDriver(), opts...)
}

func (m *memoryDriver) Name() string { return "memory" }

func (m *memoryDriver) Read(_ context.Context, parent, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.collections[parent][key]
	if !ok {
		return nil, nil
	}
	return clone(v), nil
}

func (m *memoryDriver) ReadAll(_ context.Context, parent string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col := m.collections[parent]
	docs := make([]Document, 0, len(col))
	for k, v := range col {
		docs = append(docs, Document{Key: k, Value: clone(v)})
	}
	return docs, nil
}

func (m *memoryDriver) Mutate(ctx context.Context, parent, key string, fn func([]byte) ([]byte, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	col := m.collections[parent]
	var current []byte
	if v, ok := col[key]; ok {
		current = clone(v)
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		if col != nil {
			delete(col, key)
			if len(col) == 0 {
				delete(m.collections, parent)
			}
		}
		return nil
	}
	if col == nil {
		col = make(map[string][]byte)
		m.collections[parent] = col
	}
	col[key] = clone(next)
	return nil
}

func (m *memoryDriver) Ping(ctx context.Context) error { return ctx.Err() }

func (m *memoryDriver) Close() error { return nil }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
