package persistence

import (
	"context"
	"sync"

	"github.com/billing/backend/internal/domain/shared"
)

// MemoryNumberSequence is an in-process NumberSequence for tests and
// single-node deployments. TryLock mirrors the fail-fast semantics of the
// database allocator: a busy prefix reports contention instead of waiting.
type MemoryNumberSequence struct {
	mu       sync.Mutex
	counters map[string]int
	locks    map[string]*sync.Mutex
}

// NewMemoryNumberSequence creates a new MemoryNumberSequence
func NewMemoryNumberSequence() *MemoryNumberSequence {
	return &MemoryNumberSequence{
		counters: make(map[string]int),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Next allocates the next sequence value for the prefix
func (s *MemoryNumberSequence) Next(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	lock, ok := s.locks[prefix]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[prefix] = lock
	}
	s.mu.Unlock()

	if !lock.TryLock() {
		return 0, shared.ErrNumberContention
	}
	defer lock.Unlock()

	s.mu.Lock()
	s.counters[prefix]++
	value := s.counters[prefix]
	s.mu.Unlock()
	return value, nil
}
