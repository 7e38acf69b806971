package redis

import (
	"context"
	"time"
)

// incrWithTTLScript starts the window on the first hit only, so a burst of
// requests cannot keep extending it.
const incrWithTTLScript = `
local n = redis.call('INCR', KEYS[1])
if n == 1 and tonumber(ARGV[1]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n`

const compareAndDeleteScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0`

const compareAndExpireScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0`

// IncrWithTTL bumps a fixed-window counter and returns the new count.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if c.cmd == nil {
		return 0, errNotInitialized
	}
	return c.cmd.Eval(ctx, incrWithTTLScript, []string{key}, ttl.Milliseconds()).Int64()
}

// CompareAndDelete removes key only while it still holds expected.
func (c *Client) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	if c.cmd == nil {
		return false, errNotInitialized
	}
	n, err := c.cmd.Eval(ctx, compareAndDeleteScript, []string{key}, expected).Int64()
	return n == 1, err
}

// CompareAndExpire resets key's TTL only while it still holds expected. It
// reports false when the key expired or changed hands.
func (c *Client) CompareAndExpire(ctx context.Context, key, expected string, ttl time.Duration) (bool, error) {
	if c.cmd == nil {
		return false, errNotInitialized
	}
	n, err := c.cmd.Eval(ctx, compareAndExpireScript, []string{key}, expected, ttl.Milliseconds()).Int64()
	return n == 1, err
}
