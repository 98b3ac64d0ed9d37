package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"doclens/internal/domain"
)

// QueryCache memoizes per-document retrieval results and synthesized
// summaries. Entries expire after a TTL and are invalidated when the
// document's index changes.
type QueryCache struct {
	mu        sync.RWMutex
	entries   map[string]*cacheEntry
	summaries map[string]string
	order     []string
	maxSize   int
	ttl       time.Duration
}

type cacheEntry struct {
	passages  []domain.ScoredPassage
	timestamp time.Time
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries:   make(map[string]*cacheEntry),
		summaries: make(map[string]string),
		order:     make([]string, 0, maxSize),
		maxSize:   maxSize,
		ttl:       ttl,
	}
}

func cacheKey(docID, query string, topK int) string {
	data := []byte(docID + "\x00" + query + "\x00" + strconv.Itoa(topK))
	hash := sha256.Sum256(data)
	return docID + ":" + hex.EncodeToString(hash[:16])
}

// Get returns cached retrieval results for the query, if fresh.
func (c *QueryCache) Get(docID, query string, topK int) ([]domain.ScoredPassage, bool) {
	c.mu.RLock()
	entry, exists := c.entries[cacheKey(docID, query, topK)]
	c.mu.RUnlock()

	if !exists || time.Since(entry.timestamp) > c.ttl {
		return nil, false
	}

	passages := make([]domain.ScoredPassage, len(entry.passages))
	copy(passages, entry.passages)
	return passages, true
}

// Put stores retrieval results for the query.
func (c *QueryCache) Put(docID, query string, topK int, passages []domain.ScoredPassage) {
	stored := make([]domain.ScoredPassage, len(passages))
	copy(stored, passages)

	key := cacheKey(docID, query, topK)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = &cacheEntry{passages: stored, timestamp: time.Now()}
}

// Summary returns the memoized synthesized summary for a document.
func (c *QueryCache) Summary(docID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.summaries[docID]
	return s, ok
}

// PutSummary memoizes a synthesized summary for a document.
func (c *QueryCache) PutSummary(docID, summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries[docID] = summary
}

// Invalidate drops everything cached for a document, called when its index
// grows or is deleted.
func (c *QueryCache) Invalidate(docID string) {
	prefix := docID + ":"

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.summaries, docID)

	kept := c.order[:0]
	for _, key := range c.order {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept
}
