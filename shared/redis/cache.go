package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ViewCache stores JSON projections of type T under a key prefix. A zero
// TTL keeps keys forever.
type ViewCache[T any] struct {
	client *goredis.Client
	logger *zap.Logger
	prefix string
	ttl    time.Duration
}

func NewViewCache[T any](client *goredis.Client, logger *zap.Logger, prefix string, ttl time.Duration) *ViewCache[T] {
	return &ViewCache[T]{client: client, logger: logger, prefix: prefix, ttl: ttl}
}

func (c *ViewCache[T]) Key(id string) string {
	return c.prefix + id
}

// Get returns (nil, false) on a miss or an undecodable value.
func (c *ViewCache[T]) Get(ctx context.Context, id string) (*T, bool) {
	data, err := c.client.Get(ctx, c.Key(id)).Result()
	if err != nil {
		return nil, false
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, false
	}
	return &v, true
}

// Set logs failures instead of returning them; a stale projection is
// rebuilt by the next event.
func (c *ViewCache[T]) Set(ctx context.Context, id string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("view cache marshal failed", zap.String("key", c.Key(id)), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.Key(id), data, c.ttl).Err(); err != nil {
		c.logger.Warn("view cache write failed", zap.String("key", c.Key(id)), zap.Error(err))
	}
}
