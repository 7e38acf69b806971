package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gamehub/gamehub-backend/pkg/config"
)

func TestGatewayLimiterDisabled(t *testing.T) {
	require.Nil(t, NewGatewayLimiter(config.GatewayRateLimitConfig{}))

	var limiter *GatewayLimiter
	require.True(t, limiter.Allow("1.1.1.1"))
}

func TestGatewayLimiterBurstPerIP(t *testing.T) {
	limiter := NewGatewayLimiter(config.GatewayRateLimitConfig{RequestsPerSecond: 1, Burst: 2})
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }

	require.True(t, limiter.Allow("10.0.0.1"))
	require.True(t, limiter.Allow("10.0.0.1"))
	require.False(t, limiter.Allow("10.0.0.1"))
	require.True(t, limiter.Allow("10.0.0.2"))

	fixed = fixed.Add(time.Second)
	require.True(t, limiter.Allow("10.0.0.1"))
}

func TestGatewayLimiterEvictsIdleVisitors(t *testing.T) {
	limiter := NewGatewayLimiter(config.GatewayRateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }

	require.True(t, limiter.Allow("10.0.0.1"))
	fixed = fixed.Add(gatewayLimiterIdle + time.Minute)
	require.True(t, limiter.Allow("10.0.0.2"))
	require.Len(t, limiter.visitors, 1)
}

func TestGatewayRateLimitMiddleware(t *testing.T) {
	limiter := NewGatewayLimiter(config.GatewayRateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})
	handler := GatewayRateLimit(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/vnpay/ipn", nil)
	req.RemoteAddr = "9.9.9.9:4000"
	handler.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}
