package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingEvalStore struct {
	EvalStore
	loads int
	err   error
}

func (c *countingEvalStore) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	c.loads++
	if c.err != nil {
		return nil, c.err
	}
	return c.EvalStore.Leaderboard(ctx)
}

func TestLeaderboardCacheHitAndInvalidate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	counting := &countingEvalStore{EvalStore: s}
	c := NewLeaderboardCache(counting)

	if err := s.InsertEvalRecord(ctx, makeTestRecord("s1", "m1", 0.5, time.Now())); err != nil {
		t.Fatalf("InsertEvalRecord: %v", err)
	}

	for range 3 {
		entries, err := c.Get(ctx)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("got %d entries, want 1", len(entries))
		}
	}
	if counting.loads != 1 {
		t.Errorf("loads = %d, want 1 (cached)", counting.loads)
	}

	if err := s.InsertEvalRecord(ctx, makeTestRecord("s2", "m2", 0.9, time.Now())); err != nil {
		t.Fatalf("InsertEvalRecord: %v", err)
	}

	// Stale until invalidated.
	entries, _ := c.Get(ctx)
	if len(entries) != 1 {
		t.Errorf("got %d entries before invalidation, want 1", len(entries))
	}

	c.Invalidate()
	entries, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries after invalidation, want 2", len(entries))
	}
	if counting.loads != 2 {
		t.Errorf("loads = %d, want 2", counting.loads)
	}
	if c.Invalidations() != 1 {
		t.Errorf("Invalidations() = %d, want 1", c.Invalidations())
	}
}

func TestLeaderboardCacheErrorNotCached(t *testing.T) {
	counting := &countingEvalStore{err: errors.New("db down")}
	c := NewLeaderboardCache(counting)

	if _, err := c.Get(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := c.Get(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if counting.loads != 2 {
		t.Errorf("loads = %d, want 2 (errors are not cached)", counting.loads)
	}
}
