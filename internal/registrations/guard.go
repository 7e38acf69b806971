package registrations

import (
	"context"
	"errors"
	"time"
)

const (
	guardScope      = "vnpay"
	defaultGuardTTL = 7 * 24 * time.Hour
)

// IdempotencyGuard remembers which gateway callbacks were already taken up.
// Claim returns true only for the first caller of a key.
type IdempotencyGuard interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type keyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

type redisGuard struct {
	store keyStore
	ttl   time.Duration
}

// NewRedisGuard stores claims as namespaced idempotency keys that expire after ttl.
func NewRedisGuard(store keyStore, ttl time.Duration) (IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("redis store is required")
	}
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	return &redisGuard{store: store, ttl: ttl}, nil
}

func (g *redisGuard) Claim(ctx context.Context, key string) (bool, error) {
	return g.store.SetNX(ctx, g.store.IdempotencyKey(guardScope, key), "1", g.ttl)
}

func (g *redisGuard) Release(ctx context.Context, key string) error {
	return g.store.Del(ctx, g.store.IdempotencyKey(guardScope, key))
}

// noopGuard lets every callback through; the conditional payment update still
// keeps processing exactly-once.
type noopGuard struct{}

func (noopGuard) Claim(context.Context, string) (bool, error) { return true, nil }
func (noopGuard) Release(context.Context, string) error { return nil }

func callbackKey(txnRef, transactionNo string) string {
	if transactionNo == "" {
		return txnRef
	}
	return txnRef + ":" + transactionNo
}
