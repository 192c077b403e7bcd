package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/leanauth/core"
	"github.com/layer-3/leanauth/ports"
)

const (
	// DefaultMaxEntries caps the pending logins held in memory
	DefaultMaxEntries = 10_000

	sweepPeriod = time.Minute
)

type pendingEntry struct {
	login     core.PendingLogin
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the PendingStore interface
type MemoryStore struct {
	pending    map[string]pendingEntry
	mu         sync.Mutex
	maxEntries int
	lastSweep  time.Time
	now        func() time.Time
}

// MemoryOption customizes a MemoryStore
type MemoryOption func(*MemoryStore)

// WithMaxEntries sets how many pending logins are held before Put refuses new ones
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) {
		s.maxEntries = n
	}
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(opts ...MemoryOption) ports.PendingStore {
	s := &MemoryStore{
		pending:    make(map[string]pendingEntry),
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastSweep = s.now()
	return s
}

// Put records a pending login until the ttl elapses. It returns
// ErrPendingStoreFull once maxEntries live logins are held.
func (s *MemoryStore) Put(ctx context.Context, login core.PendingLogin, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepPeriod {
		s.sweep(now)
		s.lastSweep = now
	}

	if _, exists := s.pending[login.State]; !exists && len(s.pending) >= s.maxEntries {
		return core.ErrPendingStoreFull
	}
	s.pending[login.State] = pendingEntry{
		login:     login,
		expiresAt: now.Add(ttl),
	}

	return nil
}

// Take returns the pending login and forgets it
func (s *MemoryStore) Take(ctx context.Context, state string) (core.PendingLogin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.pending[state]
	if !exists {
		return core.PendingLogin{}, core.ErrPendingLoginNotFound
	}
	delete(s.pending, state)

	if !s.now().Before(entry.expiresAt) {
		return core.PendingLogin{}, core.ErrPendingLoginNotFound
	}

	return entry.login, nil
}

// sweep drops expired entries; callers hold the lock
func (s *MemoryStore) sweep(now time.Time) {
	for state, entry := range s.pending {
		if !now.Before(entry.expiresAt) {
			delete(s.pending, state)
		}
	}
}
