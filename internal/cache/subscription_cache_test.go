package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	subscriptiondomain "github.com/smallbiznis/familyhub/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSubscriptionCacheRoundTrip(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewSubscriptionCache(client)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	sub := subscriptiondomain.Subscription{
		ID:             42,
		SubscriptionID: "sub_1",
		UserID:         "user-1",
		Status:         subscriptiondomain.StatusActive,
	}
	require.NoError(t, cache.Set(ctx, sub, 0))
	assert.True(t, mr.Exists(subscriptionKeyPrefix+"user-1"))

	got, ok, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sub_1", got.SubscriptionID)

	require.NoError(t, cache.Invalidate(ctx, "user-1"))
	_, ok, err = cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubscriptionCacheExpires(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewSubscriptionCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, subscriptiondomain.Subscription{ID: 1, UserID: "user-1"}, 0))
	mr.FastForward(defaultSubscriptionTTL + time.Second)

	_, ok, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubscriptionCacheDropsCorruptEntry(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewSubscriptionCache(client)
	require.NoError(t, mr.Set(subscriptionKeyPrefix+"user-1", "{not json"))

	_, ok, err := cache.Get(context.Background(), "user-1")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(subscriptionKeyPrefix+"user-1"))
}

func TestNoopCacheWithoutClient(t *testing.T) {
	cache := NewSubscriptionCache(nil)
	require.NoError(t, cache.Set(context.Background(), subscriptiondomain.Subscription{UserID: "u"}, 0))
	_, ok, err := cache.Get(context.Background(), "u")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubscriptionCacheSkipsFillAfterInvalidate(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewSubscriptionCache(client)
	ctx := context.Background()

	version, err := cache.Version(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	// a write lands between the read that produced the row and the fill
	require.NoError(t, cache.Invalidate(ctx, "user-1"))

	stale := subscriptiondomain.Subscription{ID: 1, UserID: "user-1", Status: subscriptiondomain.StatusActive}
	require.NoError(t, cache.Set(ctx, stale, version))
	assert.False(t, mr.Exists(subscriptionKeyPrefix+"user-1"))

	current, err := cache.Version(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)

	require.NoError(t, cache.Set(ctx, stale, current))
	assert.True(t, mr.Exists(subscriptionKeyPrefix+"user-1"))
}
