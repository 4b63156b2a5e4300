package history

import (
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/odds-tracker/internal/metrics"
	"github.com/yourusername/odds-tracker/internal/models"
)

// CacheKey identifies a reconstruction. A new snapshot changes LatestKey, so stale
// entries are never served after a poll.
type CacheKey struct {
	Event     string
	LatestKey string
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%s|%s", k.LatestKey, k.Event)
}

// Cache provides in-memory caching for reconstructed race histories
type Cache struct {
	cache     *cache.Cache
	ttl       time.Duration
	mu        sync.RWMutex
	hitCount  uint64
	missCount uint64
}

// NewCache creates a new history cache
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Get retrieves a cached history
func (c *Cache) Get(key CacheKey) (models.RaceHistory, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if result, found := c.cache.Get(key.String()); found {
		if h, ok := result.(models.RaceHistory); ok {
			c.hitCount++
			metrics.RecordHistoryRequest(true)
			return h, true
		}
	}

	c.missCount++
	metrics.RecordHistoryRequest(false)
	return models.RaceHistory{}, false
}

// Set stores a history in cache
func (c *Cache) Set(key CacheKey, h models.RaceHistory) {
	c.cache.Set(key.String(), h, c.ttl)
}

// Clear flushes the entire cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Flush()
	c.hitCount = 0
	c.missCount = 0
}

// Stats returns cache statistics
func (c *Cache) Stats() (hits, misses uint64, ratio float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hits = c.hitCount
	misses = c.missCount
	total := hits + misses
	if total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of items in cache
func (c *Cache) ItemCount() int {
	return c.cache.ItemCount()
}
