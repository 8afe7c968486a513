package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const idempotencyNamespace = "wallet:idem:"

// IdempotencyCache implements ports.IdempotencyCache on Redis.
//
// Each key owns two entries: "<key>:claim" marks a request in flight and
// "<key>:resp" holds the finished response. The claim outlives the
// response write so a retry racing the first call never runs twice.
type IdempotencyCache struct {
	client goredis.Cmdable
}

func NewIdempotencyCache(client goredis.Cmdable) *IdempotencyCache {
	return &IdempotencyCache{client: client}
}

func claimKey(key string) string    { return idempotencyNamespace + key + ":claim" }
func responseKey(key string) string { return idempotencyNamespace + key + ":resp" }

// Claim reserves key with SET NX. It returns false when the key is held.
func (c *IdempotencyCache) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	err := c.client.SetArgs(ctx, claimKey(key), time.Now().UTC().Format(time.RFC3339), goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Err()
	switch {
	case errors.Is(err, goredis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return true, nil
}

func (c *IdempotencyCache) Forget(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, claimKey(key)).Err(); err != nil {
		return fmt.Errorf("forget idempotency key: %w", err)
	}
	return nil
}

// Get returns the stored response, or nil when none was recorded.
func (c *IdempotencyCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, responseKey(key)).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read idempotent response: %w", err)
	}
	return val, nil
}

// Set records the response and extends the claim to the same ttl.
func (c *IdempotencyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, responseKey(key), value, ttl)
		pipe.Expire(ctx, claimKey(key), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store idempotent response: %w", err)
	}
	return nil
}
