package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const memoryStoreSize = 4096

// MemoryStore is an in-process Store used in development and tests. The
// expirable LRU holds a single TTL fixed at construction, so the per-call
// ttl is ignored here.
type MemoryStore struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		lru: expirable.NewLRU[string, []byte](memoryStoreSize, nil, ttl),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	val, ok := s.lru.Get(key)
	if !ok {
		return nil, nil
	}
	return val, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.lru.Add(key, value)
	return nil
}

func (s *MemoryStore) Forget(_ context.Context, key string) error {
	s.lru.Remove(key)
	return nil
}

// MemoryLocker degrades the advisory lock to per-key in-process mutual
// exclusion, which is enough when a single process owns the store.
type MemoryLocker struct {
	mu   sync.Mutex
	sems map[string]chan struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{sems: make(map[string]chan struct{})}
}

func (l *MemoryLocker) sem(name string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	sem, ok := l.sems[name]
	if !ok {
		sem = make(chan struct{}, 1)
		l.sems[name] = sem
	}
	return sem
}

func (l *MemoryLocker) Acquire(ctx context.Context, name string, wait time.Duration) (func(), error) {
	sem := l.sem(name)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		var once sync.Once
		release := func() {
			once.Do(func() { <-sem })
		}
		return release, nil
	case <-timer.C:
		return nil, ErrLockNotAcquired
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
