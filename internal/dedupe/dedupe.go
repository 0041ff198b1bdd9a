// Package dedupe provides in-memory, time-bounded admission control that
// turns the gateway's at-least-once webhook delivery into at-most-once
// processing within a window. Scope is a single process instance.
package dedupe

import (
	"sync"
	"time"
)

const (
	// DefaultTTL is how long an admitted message ID blocks reprocessing.
	DefaultTTL = 4 * time.Minute

	// DefaultCapacity bounds the number of tracked IDs. Beyond it, the
	// entries closest to expiry are evicted first.
	DefaultCapacity = 1000
)

// Guard is a capacity-bounded, time-expiring set of recently-admitted IDs.
// Construct one at process start and share it by reference; the check-and-
// insert in Admit is the only operation and holds the lock with no I/O.
type Guard struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	expiry   map[string]time.Time
}

// New creates a Guard with the given TTL and capacity.
func New(ttl time.Duration, capacity int) *Guard {
	return &Guard{
		ttl:      ttl,
		capacity: capacity,
		expiry:   map[string]time.Time{},
	}
}

// NewDefault creates a Guard with DefaultTTL and DefaultCapacity.
func NewDefault() *Guard {
	return New(DefaultTTL, DefaultCapacity)
}

// Admit returns true and records id if it has not been admitted within the
// TTL window; it returns false if the id is already present and unexpired,
// in which case the caller must skip all further processing.
func (g *Guard) Admit(id string) bool {
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	if exp, ok := g.expiry[id]; ok && now.Before(exp) {
		return false
	}

	g.sweep(now)
	g.expiry[id] = now.Add(g.ttl)
	return true
}

// sweep drops expired entries, then enforces the capacity bound by evicting
// the entries closest to expiry. Called with the lock held.
func (g *Guard) sweep(now time.Time) {
	for id, exp := range g.expiry {
		if !now.Before(exp) {
			delete(g.expiry, id)
		}
	}

	for len(g.expiry) >= g.capacity {
		var oldest string
		var oldestExp time.Time
		for id, exp := range g.expiry {
			if oldest == "" || exp.Before(oldestExp) {
				oldest = id
				oldestExp = exp
			}
		}
		delete(g.expiry, oldest)
	}
}

// Len returns the number of tracked IDs, expired entries included.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.expiry)
}
