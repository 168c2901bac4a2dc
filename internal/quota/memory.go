package quota

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultMaxChats      = 5
	DefaultInactivityTTL = 24 * time.Hour
)

type guestSession struct {
	mu       sync.Mutex
	count    int
	lastUsed time.Time
}

// MemoryTracker keeps quota counters in a process-local map. Restarting the
// process resets all quotas; this only gates a free trial, not a security
// boundary. Lookups take a read lock on the table; the check-and-increment
// itself serializes on the session's own mutex so different sessions never
// contend.
type MemoryTracker struct {
	mu       sync.RWMutex
	sessions map[string]*guestSession
	max      int
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryTracker(maxChats int, inactivityTTL time.Duration) *MemoryTracker {
	if maxChats <= 0 {
		maxChats = DefaultMaxChats
	}
	if inactivityTTL <= 0 {
		inactivityTTL = DefaultInactivityTTL
	}
	return &MemoryTracker{
		sessions: make(map[string]*guestSession),
		max:      maxChats,
		ttl:      inactivityTTL,
		now:      time.Now,
	}
}

func (t *MemoryTracker) session(sessionID string) *guestSession {
	t.mu.RLock()
	s := t.sessions[sessionID]
	t.mu.RUnlock()
	if s != nil {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s := t.sessions[sessionID]; s != nil {
		return s
	}
	s = &guestSession{}
	t.sessions[sessionID] = s
	return s
}

func (t *MemoryTracker) CheckAndReserve(ctx context.Context, sessionID string) (Usage, error) {
	s := t.session(sessionID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count >= t.max {
		return Usage{Remaining: 0, Used: s.count, Max: t.max}, ErrExceeded
	}

	s.count++
	s.lastUsed = t.now()
	return Usage{Remaining: t.max - s.count, Used: s.count, Max: t.max}, nil
}

func (t *MemoryTracker) Peek(ctx context.Context, sessionID string) (Usage, error) {
	t.mu.RLock()
	s := t.sessions[sessionID]
	t.mu.RUnlock()

	if s == nil {
		return Usage{Remaining: t.max, Used: 0, Max: t.max}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := t.max - s.count
	if remaining < 0 {
		remaining = 0
	}
	return Usage{Remaining: remaining, Used: s.count, Max: t.max}, nil
}

// Sweep removes sessions whose last accepted turn is older than the
// inactivity window. It snapshots candidates under the read lock first so
// concurrent reservations are not blocked for the duration of the scan.
func (t *MemoryTracker) Sweep(ctx context.Context) int {
	cutoff := t.now().Add(-t.ttl)

	t.mu.RLock()
	stale := make([]string, 0)
	for id, s := range t.sessions {
		s.mu.Lock()
		if s.lastUsed.Before(cutoff) {
			stale = append(stale, id)
		}
		s.mu.Unlock()
	}
	t.mu.RUnlock()

	if len(stale) == 0 {
		return 0
	}

	removed := 0
	t.mu.Lock()
	for _, id := range stale {
		s := t.sessions[id]
		if s == nil {
			continue
		}
		s.mu.Lock()
		expired := s.lastUsed.Before(cutoff)
		s.mu.Unlock()
		if expired {
			delete(t.sessions, id)
			removed++
		}
	}
	t.mu.Unlock()

	return removed
}

// Run sweeps on the given interval until the context is cancelled.
func (t *MemoryTracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := t.Sweep(ctx); removed > 0 {
				slog.Info("swept stale guest sessions", "removed", removed)
			}
		}
	}
}
