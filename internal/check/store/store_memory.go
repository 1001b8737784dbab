package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"dbtcheck/internal/check"
	"dbtcheck/pkg/platform/sentinel"
)

// Error Contract:
// - FindByID and Delete return sentinel.ErrNotFound for unknown or expired sessions
// - Save overwrites and refreshes the TTL
// - Values are copied in and out; callers never share a *check.Check with the store

type entry struct {
	check     *check.Check
	expiresAt time.Time
}

// InMemoryStore keeps sessions in process memory with a TTL.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]entry
	ttl     time.Duration
	now     func() time.Time
}

// MemoryOption configures an InMemoryStore.
type MemoryOption func(*InMemoryStore)

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewInMemory constructs an empty store. A zero ttl keeps sessions until deleted.
func NewInMemory(ttl time.Duration, opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		entries: make(map[uuid.UUID]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Save(_ context.Context, c *check.Check) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := entry{check: c.Clone()}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[c.ID] = e
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*check.Check, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok || s.expired(e) {
		return nil, fmt.Errorf("check %s: %w", id, sentinel.ErrNotFound)
	}
	return e.check.Clone(), nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || s.expired(e) {
		delete(s.entries, id)
		return fmt.Errorf("check %s: %w", id, sentinel.ErrNotFound)
	}
	delete(s.entries, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *InMemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx ends.
func (s *InMemoryStore) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Ping always succeeds; it lets health checks treat stores uniformly.
func (s *InMemoryStore) Ping(context.Context) error { return nil }

func (s *InMemoryStore) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}
