package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/image-scraper-service/pkg/utils"
)

const dedupKeyPrefix = "dedup:"

// DedupCacheImpl provides a concrete implementation for the DedupCache interface using Redis sets.
// Keys carry no expiry.
type DedupCacheImpl struct {
	client *redis.Client
}

// NewDedupCache creates a new instance of DedupCacheImpl.
func NewDedupCache(client *redis.Client) *DedupCacheImpl {
	return &DedupCacheImpl{client: client}
}

// generateKey creates a consistent Redis key for an address URL by hashing it.
func (c *DedupCacheImpl) generateKey(url string) string {
	return fmt.Sprintf("%s%s", dedupKeyPrefix, utils.HashURL(url))
}

// Get returns the members of the set, or an empty slice when the key is missing.
func (c *DedupCacheImpl) Get(ctx context.Context, url string) ([]string, error) {
	members, err := c.client.SMembers(ctx, c.generateKey(url)).Result()
	if err != nil {
		return nil, fmt.Errorf("dedup get %s: %w", url, err)
	}
	return members, nil
}

// Set replaces the set atomically. An empty values slice leaves the key deleted.
func (c *DedupCacheImpl) Set(ctx context.Context, url string, values []string) error {
	key := c.generateKey(url)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			members := make([]any, len(values))
			for i, v := range values {
				members[i] = v
			}
			pipe.SAdd(ctx, key, members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("dedup set %s: %w", url, err)
	}
	return nil
}
