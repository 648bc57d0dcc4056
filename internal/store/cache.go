package store

import (
	"context"
	"slices"
	"sync"
)

// LeaderboardCache serves the leaderboard from memory until invalidated.
// The sweep result writer invalidates it once per terminal sweep.
type LeaderboardCache struct {
	store EvalStore

	mu            sync.Mutex
	entries       []LeaderboardEntry
	valid         bool
	generation    uint64
	invalidations int
}

// NewLeaderboardCache creates an empty cache over s.
func NewLeaderboardCache(s EvalStore) *LeaderboardCache {
	return &LeaderboardCache{store: s}
}

// Get returns the cached leaderboard, loading it from the store on a miss.
func (c *LeaderboardCache) Get(ctx context.Context) ([]LeaderboardEntry, error) {
	c.mu.Lock()
	if c.valid {
		out := slices.Clone(c.entries)
		c.mu.Unlock()
		return out, nil
	}
	gen := c.generation
	c.mu.Unlock()

	entries, err := c.store.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// An invalidation during the load makes this result stale; serve it but
	// do not cache it.
	if c.generation == gen {
		c.entries = entries
		c.valid = true
	}
	c.mu.Unlock()
	return slices.Clone(entries), nil
}

// Invalidate drops the cached leaderboard.
func (c *LeaderboardCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.entries = nil
	c.generation++
	c.invalidations++
}

// Invalidations returns how many times the cache has been invalidated.
func (c *LeaderboardCache) Invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidations
}
