package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps values in a map. It is not durable; it backs the
// "memory" back end and tests. FailGets/FailSets inject errors.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool

	getErr error
	setErr error
	sets   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", ErrClosed
	}
	if m.getErr != nil {
		return "", m.getErr
	}

	value, ok := m.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}

	m.data[key] = value
	return nil
}

func (m *MemoryStore) Health(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// FailGets makes every following Get return err. Pass nil to clear.
func (m *MemoryStore) FailGets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// FailSets makes every following Set return err. Pass nil to clear.
func (m *MemoryStore) FailSets(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
}

// SetCount returns the number of Set calls, failed ones included.
func (m *MemoryStore) SetCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets
}
