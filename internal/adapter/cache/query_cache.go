package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"advisor/internal/domain"
)

// QueryCache is an LRU of search results with a TTL. Invalidate bumps a
// generation counter so entries written before a re-index are never served.
type QueryCache struct {
	mu       sync.Mutex
	entries  map[string]*cacheEntry
	order    []string
	maxSize  int
	ttl      time.Duration
	indexGen uint64
	now      func() time.Time
}

type cacheEntry struct {
	results   []domain.ScoredItem
	timestamp time.Time
	indexGen  uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(kind domain.Kind, query string, limit int) string {
	data := []byte(string(kind) + "\x00" + strconv.Itoa(limit) + "\x00" + query)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(kind domain.Kind, query string, limit int) ([]domain.ScoredItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(kind, query, limit)
	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if c.now().Sub(entry.timestamp) > c.ttl || entry.indexGen != c.indexGen {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	return entry.results, true
}

// Generation returns the current index generation. Read it before running
// the search whose results are passed to Put.
func (c *QueryCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexGen
}

// Put stores results computed at generation gen. Results from before the
// last Invalidate are dropped.
func (c *QueryCache) Put(kind domain.Kind, query string, limit int, gen uint64, results []domain.ScoredItem) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.indexGen {
		return
	}

	key := cacheKey(kind, query, limit)
	entry := &cacheEntry{
		results:   results,
		timestamp: c.now(),
		indexGen:  gen,
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.indexGen++
}

func (c *QueryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Searcher is the search operation being cached.
type Searcher interface {
	Search(ctx context.Context, kind domain.Kind, query string, limit int) ([]domain.ScoredItem, error)
}

// CachedSearcher serves repeated searches from a QueryCache. Errors are
// never cached.
type CachedSearcher struct {
	searcher Searcher
	cache    *QueryCache
}

func NewCachedSearcher(searcher Searcher, cache *QueryCache) *CachedSearcher {
	return &CachedSearcher{
		searcher: searcher,
		cache:    cache,
	}
}

func (s *CachedSearcher) Search(ctx context.Context, kind domain.Kind, query string, limit int) ([]domain.ScoredItem, error) {
	if results, hit := s.cache.Get(kind, query, limit); hit {
		return results, nil
	}

	gen := s.cache.Generation()
	results, err := s.searcher.Search(ctx, kind, query, limit)
	if err != nil {
		return nil, err
	}

	s.cache.Put(kind, query, limit, gen, results)
	return results, nil
}

// Invalidate drops every cached result.
func (s *CachedSearcher) Invalidate() {
	s.cache.Invalidate()
}
