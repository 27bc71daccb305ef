package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T) *BillingLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBillingLimiter(client)
}

func TestNilLimiterAllows(t *testing.T) {
	var l *BillingLimiter
	res, err := l.AllowCheckout(context.Background(), "u")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	release, ok, err := l.LockCancel(context.Background(), "u")
	require.NoError(t, err)
	assert.True(t, ok)
	release()
}

func TestAllowCheckoutExhaustsBurst(t *testing.T) {
	l := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < checkoutBurst; i++ {
		res, err := l.AllowCheckout(ctx, "user-1")
		require.NoError(t, err)
		require.True(t, res.Allowed, "attempt %d", i)
	}
	res, err := l.AllowCheckout(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	other, err := l.AllowCheckout(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestLockCancelIsExclusive(t *testing.T) {
	l := newLimiter(t)
	ctx := context.Background()

	release, ok, err := l.LockCancel(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.LockCancel(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	_, ok, err = l.LockCancel(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
