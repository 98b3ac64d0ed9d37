package cache

import (
	"testing"
	"time"

	"doclens/internal/domain"
)

func TestQueryCacheRoundtrip(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	passages := []domain.ScoredPassage{
		{Text: "alpha", Score: 0.9},
		{Text: "beta", Score: 0.4},
	}

	if _, ok := c.Get("doc", "query", 4); ok {
		t.Error("unexpected hit on an empty cache")
	}

	c.Put("doc", "query", 4, passages)

	got, ok := c.Get("doc", "query", 4)
	if !ok {
		t.Fatal("expected a hit after Put")
	}
	if len(got) != 2 || got[0].Text != "alpha" {
		t.Errorf("got %+v, want the stored passages", got)
	}

	// The returned slice is a copy; mutating it must not poison the cache.
	got[0].Text = "mutated"
	again, _ := c.Get("doc", "query", 4)
	if again[0].Text != "alpha" {
		t.Errorf("cache entry mutated through a returned slice: %q", again[0].Text)
	}

	// topK is part of the key.
	if _, ok := c.Get("doc", "query", 8); ok {
		t.Error("hit for a different topK")
	}
}

func TestQueryCacheTTLExpiry(t *testing.T) {
	c := NewQueryCache(10, time.Nanosecond)
	c.Put("doc", "query", 4, []domain.ScoredPassage{{Text: "alpha", Score: 1}})

	time.Sleep(time.Millisecond)
	if _, ok := c.Get("doc", "query", 4); ok {
		t.Error("expected a miss after the TTL elapsed")
	}
}

func TestQueryCacheInvalidateScopedToDocument(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	c.Put("doc-a", "query one", 4, []domain.ScoredPassage{{Text: "a1", Score: 1}})
	c.Put("doc-a", "query two", 4, []domain.ScoredPassage{{Text: "a2", Score: 1}})
	c.Put("doc-b", "query one", 4, []domain.ScoredPassage{{Text: "b1", Score: 1}})
	c.PutSummary("doc-a", "summary a")
	c.PutSummary("doc-b", "summary b")

	c.Invalidate("doc-a")

	if _, ok := c.Get("doc-a", "query one", 4); ok {
		t.Error("doc-a entry survived invalidation")
	}
	if _, ok := c.Get("doc-a", "query two", 4); ok {
		t.Error("doc-a entry survived invalidation")
	}
	if _, ok := c.Summary("doc-a"); ok {
		t.Error("doc-a summary survived invalidation")
	}
	if _, ok := c.Get("doc-b", "query one", 4); !ok {
		t.Error("doc-b entry dropped by another document's invalidation")
	}
	if s, ok := c.Summary("doc-b"); !ok || s != "summary b" {
		t.Errorf("doc-b summary = %q, %v, want it untouched", s, ok)
	}
}

func TestQueryCacheEvictsOldest(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("doc", "first", 4, []domain.ScoredPassage{{Text: "1", Score: 1}})
	c.Put("doc", "second", 4, []domain.ScoredPassage{{Text: "2", Score: 1}})
	c.Put("doc", "third", 4, []domain.ScoredPassage{{Text: "3", Score: 1}})

	if _, ok := c.Get("doc", "first", 4); ok {
		t.Error("oldest entry not evicted at capacity")
	}
	if _, ok := c.Get("doc", "second", 4); !ok {
		t.Error("second entry evicted prematurely")
	}
	if _, ok := c.Get("doc", "third", 4); !ok {
		t.Error("newest entry missing")
	}
}
