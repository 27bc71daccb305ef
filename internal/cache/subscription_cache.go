package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	subscriptiondomain "github.com/smallbiznis/familyhub/internal/subscription/domain"
)

const (
	subscriptionKeyPrefix  = "familyhub:subscription:user:"
	versionKeyPrefix       = "familyhub:subscription:version:"
	defaultSubscriptionTTL = 5 * time.Minute
	// outlives any entry so a bump is never forgotten while a fill is pending
	versionTTL = time.Hour
)

// KEYS[1] entry, KEYS[2] version; ARGV[1] expected version, ARGV[2] value,
// ARGV[3] ttl ms
const setIfCurrentScript = `
local v = redis.call("GET", KEYS[2])
if not v then
  v = "0"
end
if v ~= ARGV[1] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`

type redisSubscriptionCache struct {
	client       *redis.Client
	ttl          time.Duration
	setIfCurrent *redis.Script
}

// NewSubscriptionCache stores the latest subscription per user in redis.
// Without a client it returns a cache that never hits.
func NewSubscriptionCache(client *redis.Client) subscriptiondomain.Cache {
	if client == nil {
		return noopSubscriptionCache{}
	}
	return &redisSubscriptionCache{
		client:       client,
		ttl:          defaultSubscriptionTTL,
		setIfCurrent: redis.NewScript(setIfCurrentScript),
	}
}

func (c *redisSubscriptionCache) Get(ctx context.Context, userID string) (*subscriptiondomain.Subscription, bool, error) {
	raw, err := c.client.Get(ctx, subscriptionKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var sub subscriptiondomain.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		_ = c.client.Del(ctx, subscriptionKeyPrefix+userID).Err()
		return nil, false, err
	}
	return &sub, true, nil
}

func (c *redisSubscriptionCache) Version(ctx context.Context, userID string) (int64, error) {
	v, err := c.client.Get(ctx, versionKeyPrefix+userID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Set is a no-op when the user was invalidated after version was read.
func (c *redisSubscriptionCache) Set(ctx context.Context, sub subscriptiondomain.Subscription, version int64) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return c.setIfCurrent.Run(ctx, c.client,
		[]string{subscriptionKeyPrefix + sub.UserID, versionKeyPrefix + sub.UserID},
		strconv.FormatInt(version, 10), raw, c.ttl.Milliseconds(),
	).Err()
}

func (c *redisSubscriptionCache) Invalidate(ctx context.Context, userID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, subscriptionKeyPrefix+userID)
		pipe.Incr(ctx, versionKeyPrefix+userID)
		pipe.Expire(ctx, versionKeyPrefix+userID, versionTTL)
		return nil
	})
	return err
}

type noopSubscriptionCache struct{}

func (noopSubscriptionCache) Get(context.Context, string) (*subscriptiondomain.Subscription, bool, error) {
	return nil, false, nil
}

func (noopSubscriptionCache) Version(context.Context, string) (int64, error) { return 0, nil }

func (noopSubscriptionCache) Set(context.Context, subscriptiondomain.Subscription, int64) error {
	return nil
}

func (noopSubscriptionCache) Invalidate(context.Context, string) error { return nil }
