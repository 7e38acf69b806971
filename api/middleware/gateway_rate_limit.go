package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/gamehub/gamehub-backend/api/responses"
	"github.com/gamehub/gamehub-backend/pkg/config"
	pkgerrors "github.com/gamehub/gamehub-backend/pkg/errors"
	"github.com/gamehub/gamehub-backend/pkg/logger"
)

const gatewayLimiterIdle = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// GatewayLimiter is an in-process token bucket per client IP for the
// unauthenticated payment callbacks.
type GatewayLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors map[string]*ipLimiter
	now      func() time.Time
}

// NewGatewayLimiter returns nil when the configured rate is not positive.
func NewGatewayLimiter(cfg config.GatewayRateLimitConfig) *GatewayLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &GatewayLimiter{
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    burst,
		visitors: make(map[string]*ipLimiter),
		now:      time.Now,
	}
}

// Allow consumes one token for ip.
func (g *GatewayLimiter) Allow(ip string) bool {
	if g == nil {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, v := range g.visitors {
		if now.Sub(v.lastSeen) > gatewayLimiterIdle {
			delete(g.visitors, key)
		}
	}

	v, ok := g.visitors[ip]
	if !ok {
		v = &ipLimiter{limiter: rate.NewLimiter(g.limit, g.burst)}
		g.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// GatewayRateLimit rejects callers that exceed their bucket with RATE_LIMIT.
func GatewayRateLimit(limiter *GatewayLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !limiter.Allow(ip) {
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithField(ctx, "ip", ip)
					logg.Warn(ctx, "gateway.rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
