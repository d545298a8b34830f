// Package redis implements the ephemeral idempotency mapping on Redis with a
// bounded TTL. The durable store's uniqueness constraint remains the
// authority if an entry is evicted or Redis is unavailable.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "transfer:idempotency:"

// Cache implements domain.IdempotencyCache on a Redis client.
type Cache struct {
	client *goredis.Client
}

// NewCache creates a Cache on the given client.
func NewCache(client *goredis.Client) *Cache {
	return &Cache{client: client}
}

// Get returns the transfer reference recorded for key, if any.
func (c *Cache) Get(ctx context.Context, key string) (uuid.UUID, bool, error) {
	value, err := c.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return uuid.Nil, false, nil
		}

		return uuid.Nil, false, fmt.Errorf("idempotency cache get: %w", err)
	}

	reference, err := uuid.Parse(value)
	if err != nil {
		// A corrupt entry must not block admission; treat it as a miss.
		return uuid.Nil, false, nil
	}

	return reference, true, nil
}

// Set records the key -> reference mapping with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, reference uuid.UUID, ttl time.Duration) error {
	if err := c.client.Set(ctx, keyPrefix+key, reference.String(), ttl).Err(); err != nil {
		return fmt.Errorf("idempotency cache set: %w", err)
	}

	return nil
}
