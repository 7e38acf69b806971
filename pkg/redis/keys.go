package redis

import "strings"

const defaultKeyPrefix = "gh"

// Keyspace builds namespaced keys such as gh:session:access:<jti>.
type Keyspace struct {
	prefix string
}

func NewKeyspace(prefix string) Keyspace {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return Keyspace{prefix: prefix}
}

func (k Keyspace) Idempotency(scope, id string) string {
	return k.join("idempotency", scope, id)
}

func (k Keyspace) RateLimit(scope string) string {
	return k.join("rate_limit", scope)
}

func (k Keyspace) AccessSession(accessID string) string {
	return k.join("session", "access", accessID)
}

func (k Keyspace) Lock(name string) string {
	return k.join("lock", name)
}

func (k Keyspace) join(parts ...string) string {
	prefix := k.prefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	out := []string{prefix}
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, ":")
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return c.keys.Idempotency(scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return c.keys.RateLimit(scope)
}

func (c *Client) AccessSessionKey(accessID string) string {
	return c.keys.AccessSession(accessID)
}

func (c *Client) LockKey(name string) string {
	return c.keys.Lock(name)
}
