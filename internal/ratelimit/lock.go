package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	redis "github.com/redis/go-redis/v9"
)

// compare-and-delete so an expired holder cannot free a lock taken over by
// someone else
const unlockScript = `
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`

var ErrLockUnavailable = errors.New("lock_unavailable")

// Locker hands out short-lived per-key ownership tokens.
type Locker struct {
	client *redis.Client
	unlock *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client, unlock: redis.NewScript(unlockScript)}
}

// Acquire stores a fresh owner token under key for ttl. ok is false when
// the key is already held.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (owner string, ok bool, err error) {
	switch {
	case l == nil || l.client == nil:
		return "", false, ErrLockUnavailable
	case key == "" || ttl <= 0:
		return "", false, errors.New("lock key and ttl are required")
	}

	owner = ulid.Make().String()
	ok, err = l.client.SetNX(ctx, key, owner, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return owner, ok, nil
}

// Unlock frees key only while owner still holds it.
func (l *Locker) Unlock(ctx context.Context, key, owner string) error {
	if l == nil || l.client == nil || owner == "" {
		return nil
	}
	return l.unlock.Run(ctx, l.client, []string{key}, owner).Err()
}
