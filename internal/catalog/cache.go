package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// Cache keeps materialized packages in Redis so session setup skips Postgres.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(id string) string {
	return fmt.Sprintf("package:%s", id)
}

// Get returns nil, nil on a miss.
func (c *Cache) Get(ctx context.Context, id string) (*Package, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	pkg.Normalize()
	return &pkg, nil
}

func (c *Cache) Set(ctx context.Context, pkg Package) error {
	data, err := json.Marshal(pkg)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(pkg.ID), data, c.ttl).Err()
}

// Invalidate drops a cached package, typically after its weights change.
func (c *Cache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
