// AngelaMos | 2026
// cache.go
// Read-through cache for each user's active subscription. A miss falls
// back to the repository and writes back with the configured TTL; the
// fallback is not atomic, so a concurrent eviction can briefly
// resurrect a stale entry. The TTL bounds how long that lasts.

package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const activeCachePrefix = "active-subscription:"

type Cache interface {
	Put(ctx context.Context, userID string, sub *Subscription) error
	Get(ctx context.Context, userID string) (*Subscription, error)
	Remove(ctx context.Context, userID string) error
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(
	client *redis.Client,
	ttl time.Duration,
	logger *slog.Logger,
) Cache {
	return &redisCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func activeCacheKey(userID string) string {
	return activeCachePrefix + userID
}

func (c *redisCache) Put(
	ctx context.Context,
	userID string,
	sub *Subscription,
) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal cached subscription: %w", err)
	}

	err = c.client.Set(ctx, activeCacheKey(userID), payload, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("cache subscription for user %s: %w", userID, err)
	}

	return nil
}

// Get returns the cached subscription for the user, or (nil, nil) on a
// miss. Corrupt entries are dropped and treated as a miss.
func (c *redisCache) Get(
	ctx context.Context,
	userID string,
) (*Subscription, error) {
	payload, err := c.client.Get(ctx, activeCacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached subscription for user %s: %w", userID, err)
	}

	var sub Subscription
	if err := json.Unmarshal(payload, &sub); err != nil {
		c.logger.Warn("dropping corrupt cache entry",
			"user_id", userID,
			"error", err,
		)
		_ = c.client.Del(ctx, activeCacheKey(userID)).Err()
		return nil, nil
	}

	return &sub, nil
}

func (c *redisCache) Remove(ctx context.Context, userID string) error {
	err := c.client.Del(ctx, activeCacheKey(userID)).Err()
	if err != nil {
		return fmt.Errorf("evict cached subscription for user %s: %w", userID, err)
	}

	return nil
}
