package memory

import (
	"context"
	"sync"
)

// DedupCacheImpl implements repository.DedupCache with a map.
type DedupCacheImpl struct {
	mu      sync.RWMutex
	entries map[string][]string
}

// NewDedupCache creates an empty DedupCacheImpl.
func NewDedupCache() *DedupCacheImpl {
	return &DedupCacheImpl{entries: make(map[string][]string)}
}

func (c *DedupCacheImpl) Get(ctx context.Context, key string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	values := c.entries[key]
	out := make([]string, len(values))
	copy(out, values)
	return out, nil
}

func (c *DedupCacheImpl) Set(ctx context.Context, key string, values []string) error {
	stored := make([]string, len(values))
	copy(stored, values)

	c.mu.Lock()
	c.entries[key] = stored
	c.mu.Unlock()
	return nil
}
