package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// compareAndDeleteScript deletes KEYS[1] only if it still holds ARGV[1].
// The compare and the delete are one atomic server-side step — a plain
// GET-then-DEL races with TTL expiry and re-acquisition.
var compareAndDeleteScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// compareAndExpireScript resets the TTL on KEYS[1] (ARGV[2], milliseconds)
// only if it still holds ARGV[1].
var compareAndExpireScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// Get returns the value for key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("runlock/redis: get %s: %w", key, err)
	}
	return val, true, nil
}

// Set writes key unconditionally. A positive ttl sets a per-key expiry.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("runlock/redis: set %s: %w", key, err)
	}
	return nil
}

// SetNX writes key only if absent (atomic SET NX).
func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("runlock/redis: setnx %s: %w", key, err)
	}
	return ok, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("runlock/redis: del %s: %w", key, err)
	}
	return nil
}

// CompareAndDelete removes key only if its current value equals value.
func (s *Store) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	n, err := compareAndDeleteScript.Run(ctx, s.client, []string{key}, value).Int64()
	if err != nil {
		return false, fmt.Errorf("runlock/redis: compare-and-delete %s: %w", key, err)
	}
	return n == 1, nil
}

// CompareAndExpire resets the TTL on key only if its current value equals value.
func (s *Store) CompareAndExpire(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	n, err := compareAndExpireScript.Run(ctx, s.client, []string{key},
		value, strconv.FormatInt(ttl.Milliseconds(), 10)).Int64()
	if err != nil {
		return false, fmt.Errorf("runlock/redis: compare-and-expire %s: %w", key, err)
	}
	return n == 1, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("runlock/redis: exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Increment atomically increments the counter at key (INCR).
func (s *Store) Increment(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("runlock/redis: incr %s: %w", key, err)
	}
	return n, nil
}
