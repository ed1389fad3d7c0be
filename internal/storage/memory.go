package storage

import (
	"context"
	"sync"
	"sync/atomic"

	"poolMinter/internal/state"
)

// MemoryStore keeps the state in process. Readers load the published
// snapshot without locking; writers take turns on a private clone.
type MemoryStore struct {
	mu      sync.Mutex
	current atomic.Pointer[state.State]

	// persist, when set, runs before a new snapshot is published.
	persist func(*state.State) error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(ctx context.Context, initial *state.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Load() != nil {
		return ErrAlreadyInitialized
	}
	next, err := initial.Clone()
	if err != nil {
		return err
	}
	return s.publish(next)
}

func (s *MemoryStore) View(ctx context.Context, fn func(*state.State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.current.Load()
	if snapshot == nil {
		return ErrNotInitialized
	}
	return fn(snapshot)
}

func (s *MemoryStore) Update(ctx context.Context, fn func(*state.State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.current.Load()
	if snapshot == nil {
		return ErrNotInitialized
	}
	next, err := snapshot.Clone()
	if err != nil {
		return err
	}
	if err := fn(next); err != nil {
		return err
	}
	next.Version = snapshot.Version + 1
	return s.publish(next)
}

func (s *MemoryStore) publish(next *state.State) error {
	if s.persist != nil {
		if err := s.persist(next); err != nil {
			return err
		}
	}
	s.current.Store(next)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
