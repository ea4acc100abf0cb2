package cache

import (
	"sync"
	"time"

	"github.com/janm2001/cryptofeed/internal/model"
)

// MemoryCache keeps the last broadcast snapshot set in process memory.
// The set is replaced wholesale on each update; readers get copies.
type MemoryCache struct {
	mu        sync.RWMutex
	snapshots []model.PriceSnapshot
	byID      map[string]model.PriceSnapshot
	updatedAt time.Time
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		byID: make(map[string]model.PriceSnapshot),
	}
}

// OnSnapshots replaces the cached set. Implements broadcast.Observer.
func (c *MemoryCache) OnSnapshots(snapshots []model.PriceSnapshot) {
	byID := make(map[string]model.PriceSnapshot, len(snapshots))
	for _, s := range snapshots {
		byID[s.CoinID] = s
	}
	copied := make([]model.PriceSnapshot, len(snapshots))
	copy(copied, snapshots)

	c.mu.Lock()
	c.snapshots = copied
	c.byID = byID
	c.updatedAt = time.Now()
	c.mu.Unlock()
}

// Latest returns a copy of the cached set.
func (c *MemoryCache) Latest() []model.PriceSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.PriceSnapshot, len(c.snapshots))
	copy(out, c.snapshots)
	return out
}

// Get returns the latest snapshot for one coin.
func (c *MemoryCache) Get(coinID string) (model.PriceSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byID[coinID]
	return s, ok
}

// UpdatedAt returns when the cache was last replaced.
func (c *MemoryCache) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}
