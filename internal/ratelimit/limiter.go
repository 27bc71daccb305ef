package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	keyCheckoutUser = "familyhub:checkout:user:%s"
	keyCancelLock   = "familyhub:billing:cancel:%s"

	checkoutRate  = 5.0 / 60.0 // tokens per second
	checkoutBurst = 5
	cancelLockTTL = 30 * time.Second
)

// BillingLimiter throttles checkout creation per user and serializes
// provider cancellations. A nil limiter allows everything.
type BillingLimiter struct {
	bucket *TokenBucket
	locker *Locker
}

func NewBillingLimiter(client *redis.Client) *BillingLimiter {
	if client == nil {
		return nil
	}
	return &BillingLimiter{
		bucket: NewTokenBucket(client),
		locker: NewLocker(client),
	}
}

func (l *BillingLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowCheckout spends one checkout token of userID.
func (l *BillingLimiter) AllowCheckout(ctx context.Context, userID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyCheckoutUser, strings.TrimSpace(userID)), checkoutRate, checkoutBurst)
}

// LockCancel returns a release func when the lock was taken. ok is false
// while another cancellation of the same user is in flight.
func (l *BillingLimiter) LockCancel(ctx context.Context, userID string) (release func(), ok bool, err error) {
	if !l.Enabled() {
		return func() {}, true, nil
	}
	key := fmt.Sprintf(keyCancelLock, strings.TrimSpace(userID))
	owner, ok, err := l.locker.Acquire(ctx, key, cancelLockTTL)
	if err != nil || !ok {
		return func() {}, ok, err
	}
	return func() {
		_ = l.locker.Unlock(context.WithoutCancel(ctx), key, owner)
	}, true, nil
}
