package keystore

import (
	"context"
	"sync"
)

// MemoryStore implements [Store] in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[Key][]byte
}

// NewMemoryStore creates a new empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Key][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, key Key, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[Key][]byte)
	}

	s.data[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key Key) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}

	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Delete(ctx context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return ErrNotFound
	}

	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, key Key) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.data[key]
	return ok, nil
}

// Len returns the number of stored key sets.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = nil
	return nil
}
