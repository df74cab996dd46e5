// Package counter keeps the global number of comparisons run. Every store
// applies increments atomically so concurrent callers never lose an update.
package counter

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Key identifies the single global counter.
const Key = "global:total_tests_run"

var ErrInvalidAmount = errors.New("counter: amount must not be negative")

type Store interface {
	Get(ctx context.Context, key string) (int64, error)
	IncrBy(ctx context.Context, key string, amount int64) (int64, error)
	Close() error
}

// Service exposes the global counter on top of a Store.
type Service struct {
	store Store
	key   string
}

func NewService(store Store) *Service {
	return &Service{store: store, key: Key}
}

func (s *Service) Get(ctx context.Context) (int64, error) {
	v, err := s.store.Get(ctx, s.key)
	if err != nil {
		return 0, fmt.Errorf("get counter: %w", err)
	}
	return v, nil
}

// Increment adds amount and returns the new value. An amount of zero counts
// as one.
func (s *Service) Increment(ctx context.Context, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	if amount == 0 {
		amount = 1
	}
	v, err := s.store.IncrBy(ctx, s.key, amount)
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return v, nil
}

func (s *Service) Close() error {
	return s.store.Close()
}

type MemoryStore struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]int64)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *MemoryStore) IncrBy(_ context.Context, key string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] += amount
	return m.values[key], nil
}

func (m *MemoryStore) Close() error { return nil }
